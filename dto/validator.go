// Package dto holds the request and response shapes of the HTTP API and the
// validator shared by handlers and services.
package dto

import (
	"reflect"
	"strings"

	"calmatevibes-api/models"

	"github.com/go-playground/validator/v10"
)

// Validate is shared so handlers and services apply the same rules.
var Validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report fields by their json name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Money is a struct; expose it as a float so min/gt/required work.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if m, ok := field.Interface().(models.Money); ok {
			f, _ := m.Float64()
			return f
		}
		return nil
	}, models.Money{})

	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseCategory(fl.Field().String())
		return ok
	})
	return v
}

// FieldErrors flattens validator errors into field -> failed tag.
func FieldErrors(err error) map[string]string {
	fields := make(map[string]string)
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		fields["_"] = err.Error()
		return fields
	}
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return fields
}

// ValidateStruct runs the validator and converts failures to a domain
// ValidationError so they map to 400 like any other input error.
func ValidateStruct(s any) error {
	if err := Validate.Struct(s); err != nil {
		return models.NewValidationError(FieldErrors(err))
	}
	return nil
}
