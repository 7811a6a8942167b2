package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/doby176/light/pkg/util"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report query/json names rather than Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"query", "json", "form"} {
			name := strings.Split(f.Tag.Get(tag), ",")[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// Validator exposes the shared validator so packages can register custom rules.
func Validator() *validator.Validate { return validate }

// ReadAndValidateRequest binds the request into req, applies `default`
// tags and runs `validate` tags. The returned error is an *AppError (400)
// carrying the first failure.
func ReadAndValidateRequest(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return BadRequestError(bindMessage(err)).WithError(err)
	}
	if err := defaults.Set(req); err != nil {
		return BadRequestError(err.Error()).WithError(err)
	}
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return BadRequestError(validationMessage(err)).WithError(err)
	}
	return nil
}

func bindMessage(err error) string {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if inner := errors.Unwrap(he); inner != nil {
			return fmt.Sprintf("%v", he.Message) + ": " + inner.Error()
		}
		return fmt.Sprintf("%v", he.Message)
	}
	return err.Error()
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return strings.Join(msgs, "; ")
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Missing %s", field)
	case "email":
		return fmt.Sprintf("Invalid %s format", field)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("Invalid %s. Must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "datetime":
		return fmt.Sprintf("Invalid %s format", field)
	default:
		return fmt.Sprintf("Invalid %s", field)
	}
}

// Flag is a query/form boolean that accepts the usual spellings
// (true/false, 1/0, 1.0/0.0, yes/no, on/off). Unknown spellings are false.
type Flag bool

// UnmarshalParam implements echo.BindUnmarshaler.
func (f *Flag) UnmarshalParam(s string) error {
	*f = Flag(util.ParseBool(s))
	return nil
}
