package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator checks `validate` struct tags and reports failures by
// configuration path.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator that names fields by their configuration key.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(keyName)
	return &Validator{validate: v}
}

// RegisterRule adds a custom validation tag.
func (v *Validator) RegisterRule(tag string, fn validator.Func) error {
	if err := v.validate.RegisterValidation(tag, fn); err != nil {
		return fmt.Errorf("register validation %q: %w", tag, err)
	}
	return nil
}

// Validate checks target. When merged is non-nil, each *FieldError is
// annotated with the source that supplied the offending value.
func (v *Validator) Validate(target any, merged *Layer) error {
	err := v.validate.Struct(target)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}

	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		path := fieldPath(fe.Namespace())
		rule := fe.ActualTag()
		if p := fe.Param(); p != "" {
			rule += "=" + p
		}
		ferr := &FieldError{
			Path:  path,
			Value: fe.Value(),
			Err:   fmt.Errorf("%w: violates %q", ErrInvalidValue, rule),
		}
		if merged != nil {
			if val, ok := merged.Lookup(trimIndex(path)); ok {
				ferr.Source = val.Source
				ferr.Key = val.Key
			}
		}
		errs = append(errs, ferr)
	}
	return errors.Join(errs...)
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func trimIndex(path string) string {
	if i := strings.IndexByte(path, '['); i >= 0 {
		return path[:i]
	}
	return path
}
