package types

import (
	"errors"
	"fmt"
	"strings"
)

// ServiceSeparator splits the stack name from the service name
const ServiceSeparator = "/"

// ErrMalformedIdentifier is returned when a "stack/service" string cannot be split
var ErrMalformedIdentifier = errors.New("malformed service identifier")

// ServiceField is a parsed "stack/service" identifier
type ServiceField struct {
	StackName   string
	ServiceName string
}

// ParseServiceField splits s on the first separator. Everything after it,
// including further separators, belongs to the service name. No trimming or
// case folding is done.
func ParseServiceField(s string) (ServiceField, error) {
	if s == "" {
		return ServiceField{}, fmt.Errorf("%w: service name is empty", ErrMalformedIdentifier)
	}

	stack, service, found := strings.Cut(s, ServiceSeparator)
	if !found {
		return ServiceField{}, fmt.Errorf("%w: %q should be in the form stack/service", ErrMalformedIdentifier, s)
	}

	return ServiceField{StackName: stack, ServiceName: service}, nil
}

// String returns the identifier in "stack/service" form
func (f ServiceField) String() string {
	return f.StackName + ServiceSeparator + f.ServiceName
}
