package apperror

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// FromValidator turns a go-playground/validator error into a Validation
// apperror with one Issue per failed field.
func FromValidator(err error) *Error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return Validation(err.Error())
	}

	issues := make([]Issue, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, Issue{
			Path:    fe.Namespace(),
			Code:    fe.Tag(),
			Message: fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()),
		})
	}
	return Validation("request validation failed", issues...)
}
