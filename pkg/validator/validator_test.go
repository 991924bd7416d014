package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	gvalidator "github.com/go-playground/validator/v10"
	"github.com/milan604/buffer-go/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type callbackQuery struct {
	Code  string `form:"code" binding:"required"`
	State string `form:"state" binding:"required,uuid"`
}

type settings struct {
	ClientID string `mapstructure:"client_id" validate:"required"`
	Store    string `mapstructure:"token_store" validate:"oneof=memory redis"`
}

func TestValidateStructUsesMapstructureNames(t *testing.T) {
	v := New()

	appErr := v.ValidateStruct(settings{Store: "s3"})

	require.NotNil(t, appErr)
	assert.Equal(t, apperr.ErrorCodeValidationFail.Code(), appErr.Code)
	fields := make([]string, 0, len(appErr.Suggestions))
	for _, s := range appErr.Suggestions {
		fields = append(fields, s.Field)
	}
	assert.ElementsMatch(t, []string{"client_id", "token_store"}, fields)

	assert.Nil(t, v.ValidateStruct(settings{ClientID: "x", Store: "redis"}))
}

func TestRegisterTagError(t *testing.T) {
	v := New()
	v.RegisterTagError("required", apperr.ErrorCodeValidationFail, func(fe gvalidator.FieldError) string {
		return fe.Field() + " is required"
	})

	appErr := v.ValidateStruct(settings{Store: "memory"})
	require.NotNil(t, appErr)
	require.Len(t, appErr.Suggestions, 1)
	assert.Equal(t, "client_id is required", appErr.Suggestions[0].Message)
}

func TestRegisterValidation(t *testing.T) {
	v := New()
	require.NoError(t, v.RegisterValidation("buffer_id", func(fl gvalidator.FieldLevel) bool {
		return len(fl.Field().String()) == 24
	}))

	type update struct {
		ID string `json:"id" validate:"buffer_id"`
	}
	assert.NotNil(t, v.ValidateStruct(update{ID: "short"}))
	assert.Nil(t, v.ValidateStruct(update{ID: strings.Repeat("a", 24)}))
}

func TestParseErrorDefault(t *testing.T) {
	appErr := New().ParseError(assert.AnError)
	assert.Equal(t, apperr.ErrorCodeInvalidInput.Code(), appErr.Code)
	assert.Nil(t, New().ParseError(nil))
}

func TestBindQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	v := New()

	bind := func(target string) (*callbackQuery, *apperr.AppError) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, target, nil)
		return BindQuery[callbackQuery](v, c)
	}

	q, appErr := bind("/callback?code=abc&state=0b8a6c9e-7d62-4a5f-9a0f-1f0d8c3a2b11")
	require.Nil(t, appErr)
	assert.Equal(t, "abc", q.Code)

	_, appErr = bind("/callback?state=nope")
	require.NotNil(t, appErr)
	fields := []string{}
	for _, s := range appErr.Suggestions {
		fields = append(fields, s.Field)
	}
	assert.ElementsMatch(t, []string{"code", "state"}, fields)
}

func TestBindURI(t *testing.T) {
	gin.SetMode(gin.TestMode)
	type target struct {
		Path string `uri:"path" binding:"required,max=8"`
	}
	bind := func(path string) (*target, *apperr.AppError) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/api"+path, nil)
		c.Params = gin.Params{{Key: "path", Value: path}}
		return BindURI[target](New(), c)
	}

	got, appErr := bind("/user")
	require.Nil(t, appErr)
	assert.Equal(t, "/user", got.Path)

	_, appErr = bind("/profiles/123")
	require.NotNil(t, appErr)
	assert.Equal(t, "validation_failed", appErr.Code)
	assert.Len(t, appErr.Suggestions, 1)
}

func TestBindJSONSyntaxError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	c.Request.Header.Set("Content-Type", "application/json")

	type body struct {
		Text string `json:"text"`
	}
	_, appErr := BindJSON[body](New(), c)
	require.NotNil(t, appErr)
	assert.Equal(t, apperr.ErrorCodeInvalidRequest.Code(), appErr.Code)
}
