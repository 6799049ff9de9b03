package validator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

var (
	validate  *validator.Validate
	sanitizer *bluemonday.Policy
)

func Init() {
	validate = validator.New()
	sanitizer = bluemonday.StrictPolicy()
}

func Validate(s interface{}) error {
	if validate == nil {
		validate = validator.New()
	}
	return validate.Struct(s)
}

// SanitizeString strips all HTML from untrusted values before they are
// embedded in notification emails.
func SanitizeString(s string) string {
	if sanitizer == nil {
		sanitizer = bluemonday.StrictPolicy()
	}
	return sanitizer.Sanitize(s)
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}
