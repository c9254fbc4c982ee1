package validators

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validator adapts go-playground/validator to echo.Validator.
type Validator struct {
	validator *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validator: validator.New()}
}

// Validate reports the first failing field of i.
func (v *Validator) Validate(i any) error {
	if err := v.validator.Struct(i); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			fe := errs[0]
			return fmt.Errorf("field '%s' failed on '%s' validation", fe.Field(), fe.Tag())
		}
		return err
	}
	return nil
}
