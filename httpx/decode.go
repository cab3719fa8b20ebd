package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(time.RFC3339Nano, fl.Field().String())
		return err == nil
	})
	return v
}

// Decode reads a JSON body into v and validates it.
func Decode(r *http.Request, v any) error {
	err := render.DecodeJSON(r.Body, v)
	if err != nil {
		return Wrap(KindBadRequest, err, "Invalid JSON body")
	}
	return Validate(v)
}

// Validate checks v's validate tags. Every field error is reported, joined
// into one validation message.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Wrap(KindInternal, err, "validation failed")
	}

	var merr *multierror.Error
	for _, fe := range verrs {
		merr = multierror.Append(merr, errors.New(fieldMessage(fe)))
	}
	merr.ErrorFormat = joinMessages
	return Validation(merr.Error())
}

func joinMessages(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, ", ")
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}

	unit := "characters"
	switch fe.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		unit = "items"
	}

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must contain at least %s %s", field, fe.Param(), unit)
	case "max":
		return fmt.Sprintf("%s must contain at most %s %s", field, fe.Param(), unit)
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "url":
		return field + " must be a valid URL"
	case "isodate":
		return field + " must be an ISO 8601 date"
	default:
		return field + " is invalid"
	}
}

// ParseFlag reads a "true"/"false" query parameter. Absent means false.
func ParseFlag(r *http.Request, name string) (bool, error) {
	switch v := r.URL.Query().Get(name); v {
	case "", "false":
		return false, nil
	case "true":
		return true, nil
	default:
		return false, Validation("%s must be \"true\" or \"false\"", name)
	}
}
