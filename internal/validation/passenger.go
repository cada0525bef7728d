package validation

import (
	"strings"
	"unicode/utf8"

	"github.com/iliyamo/intercity-reservation/internal/model"
)

// ValidatePassenger returns nil when p is complete, otherwise a map of
// field errors.
func ValidatePassenger(p *model.Passenger) map[string]string {
	if p == nil {
		return map[string]string{"passenger": "passenger details are required"}
	}
	errs := map[string]string{}
	if utf8.RuneCountInString(strings.TrimSpace(p.FirstName)) < 2 {
		errs["first_name"] = "first name must be at least 2 characters"
	}
	if utf8.RuneCountInString(strings.TrimSpace(p.LastName)) < 2 {
		errs["last_name"] = "last name must be at least 2 characters"
	}
	if !IsEmail(p.Email) {
		errs["email"] = "email address is invalid"
	}
	if !IsMobile(p.Phone) {
		errs["phone"] = "phone must be a mobile number like 03XXXXXXXXX"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
