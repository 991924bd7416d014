package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/milan604/buffer-go/pkg/validator"
)

const validatorKey = "buffer_validator"

// ValidatorMiddleware makes vi available to handlers through GetValidator.
func ValidatorMiddleware(vi *validator.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(validatorKey, vi)
		c.Next()
	}
}

// GetValidator returns the validator set by ValidatorMiddleware, or a new one.
func GetValidator(c *gin.Context) *validator.Validator {
	if v, ok := c.Get(validatorKey); ok {
		if vi, ok := v.(*validator.Validator); ok {
			return vi
		}
	}
	return validator.New()
}
