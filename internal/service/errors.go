package service

import (
	"go-pen-inventory/internal/model"
	"go-pen-inventory/pkg/validator"
)

// toValidationError folds validator output into the field -> messages map.
func toValidationError(errs []*validator.ErrorResponse) error {
	verr := model.NewValidationError()
	for _, e := range errs {
		verr.Add(e.Field, e.Message)
	}
	return verr.OrNil()
}

// validate runs struct validation on req.
func validate(req interface{}) error {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return toValidationError(errs)
	}
	return nil
}
