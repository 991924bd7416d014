package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/milan604/buffer-go/pkg/apperr"
)

// APIResponse is the envelope returned by the web front.
type APIResponse struct {
	Success bool                `json:"success"`
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Data    any                 `json:"data,omitempty"`
	Errors  []apperr.Suggestion `json:"errors,omitempty"`
	Meta    map[string]any      `json:"meta,omitempty"`
}

// JSONSuccess writes a success envelope
func JSONSuccess(ctx *gin.Context, status int, data any, meta map[string]any) {
	if status == 0 {
		status = http.StatusOK
	}
	ctx.JSON(status, APIResponse{
		Success: true,
		Code:    apperr.ErrorCodeSuccess.Code(),
		Message: apperr.ErrorCodeSuccess.Message(),
		Data:    data,
		Meta:    meta,
	})
}

// JSONError writes an error envelope using *apperr.AppError
func JSONError(ctx *gin.Context, appErr *apperr.AppError) {
	if appErr == nil {
		appErr = apperr.New(apperr.ErrorCodeInternal)
	}
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	ctx.JSON(status, APIResponse{
		Success: false,
		Code:    appErr.Code,
		Message: appErr.Message,
		Errors:  appErr.Suggestions,
	})
}

// Error writes err as an error envelope. Errors that know their AppError form
// keep their code and status; anything else is reported as internal.
func Error(ctx *gin.Context, err error) {
	if err == nil {
		return
	}
	JSONError(ctx, apperr.FromError(err))
}

// Success is a shorthand for JSONSuccess with http.StatusOK and no meta.
func Success(ctx *gin.Context, data any) {
	JSONSuccess(ctx, http.StatusOK, data, nil)
}
