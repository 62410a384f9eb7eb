package auth

import (
	"strings"

	"spendwise/internal/validate"
)

// bcrypt rejects longer inputs.
const maxPasswordBytes = 72

var (
	Currencies = []string{"USD", "EUR", "GBP", "INR", "CAD", "AUD"}
	Themes     = []string{"light", "dark"}
)

func ValidateRegistration(in Registration) error {
	var v validate.Errors
	v.Check(validate.Length(strings.TrimSpace(in.Name), 1, 100), "Name is required and must be at most 100 characters")
	v.Check(validate.Email(NormalizeEmail(in.Email)), "Please enter a valid email")
	v.Check(len(in.Password) >= 6, "Password must be at least 6 characters")
	v.Check(len(in.Password) <= maxPasswordBytes, "Password cannot exceed 72 bytes")
	return v.Err()
}

func ValidateProfile(p ProfileUpdate) error {
	var v validate.Errors
	if p.Name != nil {
		v.Check(validate.Length(strings.TrimSpace(*p.Name), 1, 100), "Name must be between 1 and 100 characters")
	}
	if p.Avatar != nil {
		v.Check(validate.Length(*p.Avatar, 0, 200), "Avatar must be at most 200 characters")
	}
	if p.Bio != nil {
		v.Check(validate.Length(*p.Bio, 0, 500), "Bio cannot exceed 500 characters")
	}
	if p.Currency != nil {
		v.Check(validate.OneOf(*p.Currency, Currencies...), "Currency must be one of USD, EUR, GBP, INR, CAD, AUD")
	}
	if p.Theme != nil {
		v.Check(validate.OneOf(*p.Theme, Themes...), "Theme must be light or dark")
	}
	return v.Err()
}
