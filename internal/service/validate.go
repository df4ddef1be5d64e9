// Package service contains the business logic layer: it validates input,
// enforces the domain rules and orchestrates the repositories. Handlers
// above it only know HTTP; repositories below it only know storage.
package service

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/cloudwear/cloudwear-api/internal/apperror"
)

// newValidator builds the struct validator shared by the services.
// WithRequiredStructEnabled makes `required` fail on nil struct pointers,
// which is how the input types distinguish absent sub-documents.
func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// validationError converts a validator error into the domain's
// ValidationFailed error, naming the first offending field.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperror.ValidationFailed(fe.Field(),
			fmt.Sprintf("missing or invalid required field: %s", fe.Field()))
	}
	return apperror.ValidationFailed("", err.Error())
}
