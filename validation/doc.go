// Package validation provides input validation for configuration structs and
// schema descriptors.
//
// It supports struct tag validation (using go-playground/validator) and
// programmatic validation with error collection. Both report an
// errors.AppError with code INVALID_INPUT listing every failing field.
//
// # Struct Tag Validation
//
//	type Options struct {
//	    Prefix string `validate:"required"`
//	}
//	err := validation.Validate(opts)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Required("name", f.Name).OneOf("type", f.Type, known)
//	err := v.Err()
package validation
