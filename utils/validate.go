package utils

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"libraryapi/apperrors"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("notfuture", func(fl validator.FieldLevel) bool {
		return fl.Field().Int() <= int64(time.Now().Year())
	})
	return v
}

// ValidateStruct returns one FieldError per violated constraint, or nil.
func ValidateStruct(s interface{}) []apperrors.FieldError {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []apperrors.FieldError{{Field: "", Message: err.Error()}}
	}

	fields := make([]apperrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		var message string
		switch fe.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", field)
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", field)
		case "min":
			message = fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		case "max":
			message = fmt.Sprintf("%s cannot exceed %s characters", field, fe.Param())
		case "gte":
			message = fmt.Sprintf("%s must be at least %s", field, fe.Param())
		case "notfuture":
			message = fmt.Sprintf("%s cannot be in the future", field)
		default:
			message = fmt.Sprintf("%s is invalid", field)
		}
		fields = append(fields, apperrors.FieldError{Field: field, Message: message})
	}
	return fields
}

// Validate wraps ValidateStruct violations in a ValidationError.
func Validate(s interface{}) error {
	if fields := ValidateStruct(s); len(fields) > 0 {
		return apperrors.Validation("Validation failed", fields...)
	}
	return nil
}
