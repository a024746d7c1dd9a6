package serverutils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidationError carries a 400-able message assembled from field errors.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	parts := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		parts = append(parts, fmt.Sprintf("field '%s' failed on '%s'", fe.Field(), fe.Tag()))
	}
	return &ValidationError{Message: strings.Join(parts, "; ")}
}
