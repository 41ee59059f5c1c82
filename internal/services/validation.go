package services

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var slugRE = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// RegisterValidators adds the custom tags used by request DTOs and CSV
// rows ("slug") to v.
func RegisterValidators(v *validator.Validate) error {
	return v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugRE.MatchString(fl.Field().String())
	})
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := RegisterValidators(v); err != nil {
		panic(err)
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("csv"); name != "" {
			return name
		}
		return strings.ToLower(f.Name)
	})
	return v
}

// fieldErrors converts validator errors into a ValidationError keyed by
// prefix + field name.
func fieldErrors(err error, prefix string) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Add(prefix+fe.Field(), "failed on '"+fe.Tag()+"'")
	}
	return out
}
