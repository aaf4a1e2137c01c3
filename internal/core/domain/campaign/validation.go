package campaign

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const (
	MaxNameLen  = 100
	MaxUnitLen  = 50
	MaxPhoneLen = 20
	// PhoneRegion is the default region for numbers written without a country code.
	PhoneRegion = "KR"
)

// FieldError represents a single field's validation error.
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"message"`
}

func (e FieldError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Msg) }

// ValidationError aggregates field errors for one request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ByField groups messages per field for problem responses.
func (e *ValidationError) ByField() map[string][]string {
	out := make(map[string][]string, len(e.Fields))
	for _, f := range e.Fields {
		out[f.Field] = append(out[f.Field], f.Msg)
	}
	return out
}

func asError(errs []FieldError) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Fields: errs}
}

// NormalizePhone parses phone as a number in PhoneRegion unless it carries a country code,
// and returns it in E.164 form. Numbers the numbering plan does not allocate are rejected.
func NormalizePhone(phone string) (string, []FieldError) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", []FieldError{{"phone", "required"}}
	}
	if len(phone) > MaxPhoneLen {
		return "", []FieldError{{"phone", fmt.Sprintf("max length %d", MaxPhoneLen)}}
	}
	num, err := phonenumbers.Parse(phone, PhoneRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", []FieldError{{"phone", "invalid phone number"}}
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// ValidatePhone reports the field errors NormalizePhone would return.
func ValidatePhone(phone string) []FieldError {
	_, errs := NormalizePhone(phone)
	return errs
}

// ValidateOrder checks the client-supplied order fields and returns them trimmed,
// with the phone in E.164 form.
func ValidateOrder(f OrderFields) (OrderFields, error) {
	var errs []FieldError
	f.Name = strings.TrimSpace(f.Name)
	if f.Name == "" {
		errs = append(errs, FieldError{"name", "required"})
	} else if len([]rune(f.Name)) > MaxNameLen {
		errs = append(errs, FieldError{"name", fmt.Sprintf("max length %d", MaxNameLen)})
	}
	phone, phoneErrs := NormalizePhone(f.Phone)
	errs = append(errs, phoneErrs...)
	f.Phone = phone
	f.Unit = strings.TrimSpace(f.Unit)
	if len([]rune(f.Unit)) > MaxUnitLen {
		errs = append(errs, FieldError{"unit", fmt.Sprintf("max length %d", MaxUnitLen)})
	}
	if !f.Consent {
		errs = append(errs, FieldError{"consent", "consent is required"})
	}
	if err := asError(errs); err != nil {
		return OrderFields{}, err
	}
	return f, nil
}

// ValidateSubscription checks a notify opt-in and returns the phone in E.164 form.
func ValidateSubscription(name, phone, building string) (string, error) {
	var errs []FieldError
	if len([]rune(name)) > MaxNameLen {
		errs = append(errs, FieldError{"name", fmt.Sprintf("max length %d", MaxNameLen)})
	}
	normalized, phoneErrs := NormalizePhone(phone)
	errs = append(errs, phoneErrs...)
	if building != "" {
		if _, err := LookupBuilding(building); err != nil {
			errs = append(errs, FieldError{"building", "unknown building"})
		}
	}
	if err := asError(errs); err != nil {
		return "", err
	}
	return normalized, nil
}
