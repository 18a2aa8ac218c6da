// Package validation wraps go-playground/validator with the DNS-specific tags
// used by record payloads and configuration.
package validation

import (
	"fmt"
	"net/netip"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/miekg/dns"
	"github.com/robfig/cron/v3"
	"nic-dns/internal/common/errors"
)

// CentralizedValidator provides unified validation using go-playground/validator
type CentralizedValidator struct {
	validator *validator.Validate
}

// ValidationError represents a single validation error with context
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}

// NewCentralizedValidator creates a new centralized validator instance
func NewCentralizedValidator() *CentralizedValidator {
	v := validator.New()

	registerDNSValidators(v)

	// Report fields by their JSON names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	return &CentralizedValidator{
		validator: v,
	}
}

// ValidateStruct validates a struct using struct tags
func (cv *CentralizedValidator) ValidateStruct(s interface{}) error {
	if err := cv.validator.Struct(s); err != nil {
		return cv.formatValidationErrors(err)
	}
	return nil
}

// ValidateVar validates a single variable with validation rules
func (cv *CentralizedValidator) ValidateVar(field interface{}, tag string) error {
	if err := cv.validator.Var(field, tag); err != nil {
		return cv.formatValidationErrors(err)
	}
	return nil
}

// ValidateNamedVar is ValidateVar with name substituted into the message
func (cv *CentralizedValidator) ValidateNamedVar(field interface{}, name, tag string) error {
	err := cv.validator.Var(field, tag)
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok || len(validationErrs) == 0 {
		return errors.ValidationError(fmt.Sprintf("%s: %v", name, err))
	}
	return errors.ValidationError(formatMessage(name, validationErrs[0]))
}

// formatValidationErrors converts go-playground/validator errors to internal errors
func (cv *CentralizedValidator) formatValidationErrors(err error) error {
	validationErrors := cv.extractValidationErrors(err)
	if len(validationErrors) == 1 {
		return errors.ValidationError(validationErrors[0].Message)
	}

	messages := make([]string, len(validationErrors))
	for i, e := range validationErrors {
		messages[i] = e.Message
	}

	return errors.ValidationError(fmt.Sprintf("validation failed: %s", strings.Join(messages, "; ")))
}

// extractValidationErrors extracts structured validation errors
func (cv *CentralizedValidator) extractValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, fieldError := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   fieldError.Field(),
				Tag:     fieldError.Tag(),
				Value:   fmt.Sprintf("%v", fieldError.Value()),
				Message: formatMessage(fieldError.Field(), fieldError),
				Param:   fieldError.Param(),
			})
		}
	} else {
		validationErrors = append(validationErrors, ValidationError{
			Field:   "unknown",
			Tag:     "error",
			Message: err.Error(),
		})
	}

	return validationErrors
}

// formatMessage formats a field error into a readable message
func formatMessage(field string, err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required", field)
	case "min":
		return fmt.Sprintf("field '%s' must be at least %s", field, err.Param())
	case "max":
		return fmt.Sprintf("field '%s' must be at most %s", field, err.Param())
	case "ascii", "printascii":
		return fmt.Sprintf("field '%s' must be an ASCII string", field)
	case "ipv4", "ipv4_address":
		return fmt.Sprintf("field '%s' must be an IPv4 address", field)
	case "ipv6":
		return fmt.Sprintf("field '%s' must be an IPv6 address", field)
	case "dnsname":
		return fmt.Sprintf("field '%s' must be a valid domain name", field)
	case "record_name":
		return fmt.Sprintf("field '%s' must be an ASCII owner name, use punycode for IDN", field)
	case "character_string":
		return fmt.Sprintf("field '%s' must be at most 255 bytes", field)
	case "cron_expression":
		return fmt.Sprintf("field '%s' must be a valid cron expression", field)
	default:
		return fmt.Sprintf("field '%s' failed validation: %s", field, err.Tag())
	}
}

// CronParser accepts standard five-field specs and descriptors such as @every.
var CronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// IsASCII reports whether s has no bytes outside 7-bit ASCII
func IsASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// registerDNSValidators registers the DNS-specific tags
func registerDNSValidators(v *validator.Validate) {
	// Domain name in presentation format, relative or absolute
	v.RegisterValidation("dnsname", func(fl validator.FieldLevel) bool {
		name := fl.Field().String()
		if name == "" || !IsASCII(name) {
			return false
		}
		_, ok := dns.IsDomainName(name)
		return ok
	})

	// Owner name of a record: empty and "@" denote the zone apex
	v.RegisterValidation("record_name", func(fl validator.FieldLevel) bool {
		name := fl.Field().String()
		if name == "" || name == "@" {
			return true
		}
		if !IsASCII(name) {
			return false
		}
		_, ok := dns.IsDomainName(name)
		return ok
	})

	// A single <character-string> of TXT, HINFO and NAPTR data
	v.RegisterValidation("character_string", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= 255
	})

	// Dotted-quad IPv4 only; the ipv4 tag also admits IPv4-mapped IPv6 forms
	v.RegisterValidation("ipv4_address", func(fl validator.FieldLevel) bool {
		addr, err := netip.ParseAddr(fl.Field().String())
		return err == nil && addr.Is4()
	})

	v.RegisterValidation("cron_expression", func(fl validator.FieldLevel) bool {
		_, err := CronParser.Parse(fl.Field().String())
		return err == nil
	})
}

// Global validator instance for convenience
var globalValidator = NewCentralizedValidator()

// ValidateStruct validates a struct using the global validator instance
func ValidateStruct(s interface{}) error {
	return globalValidator.ValidateStruct(s)
}

// ValidateVar validates a variable using the global validator instance
func ValidateVar(field interface{}, tag string) error {
	return globalValidator.ValidateVar(field, tag)
}

// ValidateNamedVar validates a named variable using the global validator instance
func ValidateNamedVar(field interface{}, name, tag string) error {
	return globalValidator.ValidateNamedVar(field, name, tag)
}
