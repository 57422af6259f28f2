package utils

import (
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// same tag gin binding uses, so inputs validate identically on both paths
	v.SetTagName("binding")
	return v
}

// ValidateStruct runs the struct's `binding` tags outside of gin, for inputs
// that arrive through the workflow or cmd layers.
func ValidateStruct(input any) error {
	return validate.Struct(input)
}
