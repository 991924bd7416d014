package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	gvalidator "github.com/go-playground/validator/v10"
	"github.com/milan604/buffer-go/pkg/apperr"
)

// TagErrorBuilder describes how to convert a validator.FieldError into a message
type TagErrorBuilder struct {
	Code    *apperr.ErrorCode
	Builder func(fe gvalidator.FieldError) string
}

// Validator wraps go-playground validator and turns its errors into *apperr.AppError.
type Validator struct {
	v                *gvalidator.Validate
	tagErrorBuilders map[string]TagErrorBuilder
}

// ValidatorEngine is the part of Validator used by the bind helpers.
type ValidatorEngine interface {
	RegisterValidation(tag string, fn gvalidator.Func) error
	RegisterTagError(tag string, code *apperr.ErrorCode, builder func(gvalidator.FieldError) string)
	ParseError(err error) *apperr.AppError
}

// fieldName reports the external name of a struct field: its mapstructure, json,
// form or uri tag, else the Go name.
func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"mapstructure", "json", "form", "uri"} {
		if name := getTagName(f, tag); name != "" {
			return name
		}
	}
	return f.Name
}

// New creates a Validator and registers the same field naming on Gin's binding engine.
func New() *Validator {
	v := gvalidator.New(gvalidator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(fieldName)

	if be, ok := binding.Validator.Engine().(*gvalidator.Validate); ok {
		be.RegisterTagNameFunc(fieldName)
	}

	return &Validator{
		v:                v,
		tagErrorBuilders: make(map[string]TagErrorBuilder),
	}
}

func getTagName(f reflect.StructField, tagName string) string {
	tagValue := f.Tag.Get(tagName)
	if tagValue == "-" {
		return ""
	}
	return strings.SplitN(tagValue, ",", 2)[0]
}

// RegisterValidation registers a custom validator (name) to the engine.
func (vi *Validator) RegisterValidation(tag string, fn gvalidator.Func) error {
	return vi.v.RegisterValidation(tag, fn)
}

// RegisterTagError maps a tag to an error code and message builder.
func (vi *Validator) RegisterTagError(tag string, code *apperr.ErrorCode, builder func(gvalidator.FieldError) string) {
	vi.tagErrorBuilders[tag] = TagErrorBuilder{Code: code, Builder: builder}
}

// ValidateStruct validates s against its `validate` tags.
func (vi *Validator) ValidateStruct(s any) *apperr.AppError {
	if err := vi.v.Struct(s); err != nil {
		return vi.ParseError(err)
	}
	return nil
}

// ParseError converts any binding, validator or json error into *apperr.AppError.
func (vi *Validator) ParseError(err error) *apperr.AppError {
	if err == nil {
		return nil
	}

	var (
		verrs     gvalidator.ValidationErrors
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
	)
	switch {
	case errors.As(err, &verrs):
		appErr := apperr.New(apperr.ErrorCodeValidationFail)
		for _, fe := range verrs {
			appErr.AddSuggestion(fe.Field(), vi.buildMessageForField(fe))
		}
		return appErr

	case errors.As(err, &typeErr):
		appErr := apperr.New(apperr.ErrorCodeInvalidRequest)
		if typeErr.Field == "" {
			return appErr
		}
		appErr.AddSuggestion(typeErr.Field, fmt.Sprintf("Invalid type for field %s: expected %s", typeErr.Field, typeErr.Type))
		return appErr

	case errors.As(err, &syntaxErr):
		return apperr.New(apperr.ErrorCodeInvalidRequest).WithMessage("Invalid JSON payload")

	default:
		return apperr.New(apperr.ErrorCodeInvalidInput).WithMessage(fmt.Sprintf("Invalid input: %v", err))
	}
}

func (vi *Validator) buildMessageForField(fe gvalidator.FieldError) string {
	if b, ok := vi.tagErrorBuilders[fe.Tag()]; ok && b.Builder != nil {
		return b.Builder(fe)
	}
	if fe.Param() != "" {
		return fmt.Sprintf("field %s failed on '%s' validation (param=%s)", fe.Field(), fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("field %s failed on '%s' validation", fe.Field(), fe.Tag())
}

// BindJSON binds and validates the JSON body into T.
func BindJSON[T any](vi ValidatorEngine, ctx *gin.Context) (*T, *apperr.AppError) {
	var req T
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, vi.ParseError(err)
	}
	return &req, nil
}

// BindQuery binds and validates query parameters into T.
func BindQuery[T any](vi ValidatorEngine, ctx *gin.Context) (*T, *apperr.AppError) {
	var req T
	if err := ctx.ShouldBindQuery(&req); err != nil {
		return nil, vi.ParseError(err)
	}
	return &req, nil
}

// BindURI binds and validates uri params into T.
func BindURI[T any](vi ValidatorEngine, ctx *gin.Context) (*T, *apperr.AppError) {
	var req T
	if err := ctx.ShouldBindUri(&req); err != nil {
		return nil, vi.ParseError(err)
	}
	return &req, nil
}
