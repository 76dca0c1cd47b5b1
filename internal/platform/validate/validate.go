// Package validate wraps go-playground/validator so request structs report
// failures keyed by their JSON field names.
package validate

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

var tagMessages = map[string]string{
	"required": "is required",
	"numeric":  "must be numeric",
	"datetime": "must be a valid date",
}

// Struct validates s and returns a map of JSON field name to message. A nil
// map means s is valid.
func Struct(s interface{}) (map[string]string, error) {
	err := validate.Struct(s)
	if err == nil {
		return nil, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		msg, ok := tagMessages[fe.Tag()]
		if !ok {
			msg = "is invalid"
		}
		fields[fe.Field()] = msg
	}
	return fields, nil
}
