// Package validate collects field constraint violations so a request can
// report all of them in one response.
package validate

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"spendwise/internal/apperr"
)

type Errors struct {
	fields []string
}

// Check records msg when ok is false.
func (e *Errors) Check(ok bool, msg string) {
	if !ok {
		e.fields = append(e.fields, msg)
	}
}

func (e *Errors) Add(format string, args ...any) {
	e.fields = append(e.fields, fmt.Sprintf(format, args...))
}

// Err returns an apperr validation error, or nil when nothing was recorded.
func (e *Errors) Err() error {
	return apperr.Validation(e.fields)
}

func Length(s string, min, max int) bool {
	n := utf8.RuneCountInString(s)
	return n >= min && n <= max
}

func Email(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndex(s, "@")
	return at > 0 && strings.Contains(s[at+1:], ".")
}

func OneOf[T comparable](v T, allowed ...T) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
