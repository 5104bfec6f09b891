package validator

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

var reasonPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{2,47}$`)

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func registerCustomValidations() {
	validate.RegisterValidation("tier", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "public", "skool":
			return true
		}
		return false
	})

	// Ledger reason tags are snake_case identifiers, e.g. generate_song.
	validate.RegisterValidation("reason", func(fl validator.FieldLevel) bool {
		return reasonPattern.MatchString(fl.Field().String())
	})

	validate.RegisterValidation("generation_kind", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "song", "art", "social":
			return true
		}
		return false
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"_": err.Error()}
	}

	errors := make(map[string]string)
	for _, err := range verrs {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "email":
			errors[field] = "Invalid email format"
		case "min":
			errors[field] = "Value is too short (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "gte":
			errors[field] = "Value must be at least " + err.Param()
		case "lte":
			errors[field] = "Value must be at most " + err.Param()
		case "alphanum":
			errors[field] = "Only letters and digits are allowed"
		case "tier":
			errors[field] = "Invalid tier. Must be: public or skool"
		case "reason":
			errors[field] = "Invalid reason. Use a snake_case tag such as generate_song"
		case "generation_kind":
			errors[field] = "Invalid kind. Must be: song, art, or social"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}
