package service

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"github.com/formgate/formgate/internal/dto"
)

// DefaultSubject is substituted when a submission omits the subject line.
const DefaultSubject = "Contact form submission"

// ValidationResult reports either the normalized input or a field-by-field
// explanation of every violated rule.
type ValidationResult struct {
	Valid      bool
	Fields     map[string]string
	Normalized dto.SubmissionRequest
}

// SubmissionValidator performs structural validation of contact submissions.
// Validation is pure: bad input is reported, never returned as an error.
type SubmissionValidator struct {
	validate  *validator.Validate
	sanitizer *bluemonday.Policy
}

// NewSubmissionValidator constructs a validator over a shared validate instance.
func NewSubmissionValidator(validate *validator.Validate) *SubmissionValidator {
	return &SubmissionValidator{
		validate:  validate,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// Validate normalizes the request and checks every field rule, collecting all
// violations rather than stopping at the first.
func (v *SubmissionValidator) Validate(req dto.SubmissionRequest) ValidationResult {
	normalized := v.normalize(req)

	if err := v.validate.Struct(normalized); err != nil {
		fields := make(map[string]string)
		var violations validator.ValidationErrors
		if errors.As(err, &violations) {
			for _, violation := range violations {
				fields[strings.ToLower(violation.Field())] = fieldMessage(violation)
			}
		} else {
			fields["request"] = "submission payload is invalid"
		}
		return ValidationResult{Valid: false, Fields: fields}
	}

	return ValidationResult{Valid: true, Normalized: normalized}
}

func (v *SubmissionValidator) normalize(req dto.SubmissionRequest) dto.SubmissionRequest {
	req.Name = v.cleanText(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Subject = v.cleanText(req.Subject)
	req.Message = v.cleanText(req.Message)
	req.Source = strings.TrimSpace(req.Source)
	req.UserAgent = strings.TrimSpace(req.UserAgent)

	if req.Subject == "" {
		req.Subject = DefaultSubject
	}
	return req
}

// cleanText strips markup but keeps the plain text, so "<b>hi</b> there"
// survives as "hi there".
func (v *SubmissionValidator) cleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(v.sanitizer.Sanitize(s)))
}

func fieldMessage(violation validator.FieldError) string {
	field := violation.Field()
	switch violation.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return "Email must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, violation.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, violation.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
