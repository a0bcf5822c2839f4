package config

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/cuemby/corral/pkg/deploy"
	"github.com/cuemby/corral/pkg/types"
	"github.com/go-playground/validator/v10"
)

// ErrInvalidConfig is returned when a configuration fails validation
var ErrInvalidConfig = errors.New("invalid configuration")

// portPattern matches a single host:container mapping, optionally with protocol
var portPattern = regexp.MustCompile(`^\d{1,5}:\d{1,5}(/(tcp|udp))?$`)

// validate is the validator instance for command configurations.
// Initialized in init() with custom validators.
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report yaml names so messages match what users write
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	_ = validate.RegisterValidation("service", validateService)
	_ = validate.RegisterValidation("ports", validatePorts)
}

// validateService checks for a "stack/service" identifier
func validateService(fl validator.FieldLevel) bool {
	_, err := types.ParseServiceField(fl.Field().String())
	return err == nil
}

// validatePorts checks a comma separated list of host:container mappings
func validatePorts(fl validator.FieldLevel) bool {
	ports := deploy.ParsePorts(fl.Field().String())
	if len(ports) == 0 {
		return false
	}
	for _, p := range ports {
		if !portPattern.MatchString(p) {
			return false
		}
	}
	return true
}

func validateStruct(cfg any) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "url":
		return fmt.Sprintf("%s %q is not a valid URL", field, fe.Value())
	case "service":
		return fmt.Sprintf("%s %q should be in the form stack/service", field, fe.Value())
	case "ports":
		return fmt.Sprintf("%s %q should be host:container[,host:container]", field, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
