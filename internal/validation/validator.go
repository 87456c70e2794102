package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DateLayout is the calendar date format accepted by the isodate rule.
const DateLayout = "2006-01-02"

var ErrInvalid = errors.New("validation failed")

var (
	handlePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	clockPattern  = regexp.MustCompile(`^([0-1][0-9]|2[0-3]):[0-5][0-9]$`)
)

// now is replaced in tests.
var now = time.Now

// Errors collects every failing field. It matches ErrInvalid with errors.Is.
type Errors struct {
	Fields map[string]string
}

func (e *Errors) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrInvalid.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrInvalid.Error() + ": " + strings.Join(parts, "; ")
}

func (e *Errors) Is(target error) bool {
	return target == ErrInvalid
}

// Add records msg for field unless the field already failed.
func (e *Errors) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

// Err returns e when any field failed and nil otherwise.
func (e *Errors) Err() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// FieldErrors extracts the field map from a validation error, if err is one.
func FieldErrors(err error) map[string]string {
	var verrs *Errors
	if errors.As(err, &verrs) {
		return verrs.Fields
	}
	return nil
}

// Messages overrides default messages. Keys are "field.tag" or "field".
type Messages map[string]string

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})

	mustRegister(v, "handle", func(fl validator.FieldLevel) bool {
		return handlePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "clock", func(fl validator.FieldLevel) bool {
		return clockPattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "isodate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(DateLayout, fl.Field().String())
		return err == nil
	})
	mustRegister(v, "notpast", func(fl validator.FieldLevel) bool {
		date, err := time.ParseInLocation(DateLayout, fl.Field().String(), time.Local)
		if err != nil {
			// isodate reports malformed dates.
			return true
		}
		current := now()
		today := time.Date(current.Year(), current.Month(), current.Day(), 0, 0, 0, 0, time.Local)
		return !date.Before(today)
	})

	return &Validator{validate: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// Struct validates s and returns *Errors holding one message per failing field.
func (v *Validator) Struct(s any, messages Messages) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate: %w", err)
	}

	out := &Errors{}
	for _, fe := range fieldErrs {
		out.Add(fe.Field(), message(fe, messages))
	}
	return out
}

var defaultValidator = New()

// Struct validates s with the shared validator.
func Struct(s any, messages Messages) error {
	return defaultValidator.Struct(s, messages)
}

func message(fe validator.FieldError, messages Messages) string {
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	if msg, ok := messages[fe.Field()]; ok {
		return msg
	}

	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if isString {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if isString {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "email":
		return "must be a valid email address"
	case "handle":
		return "can only contain letters, numbers, and underscores"
	case "clock":
		return "must be a time in HH:MM format"
	case "isodate":
		return "must be a date in YYYY-MM-DD format"
	case "notpast":
		return "cannot be in the past"
	default:
		return "is invalid"
	}
}
