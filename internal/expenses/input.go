package expenses

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"spendwise/internal/apperr"
	"spendwise/internal/validate"
)

const (
	maxDescription = 200
	maxTags        = 20
	maxTagLength   = 30
)

// maxAmount is the first value that no longer fits NUMERIC(12,2).
var maxAmount = decimal.New(1, 10)

// CreateInput is the body of a create request. Amount accepts a JSON number
// or a numeric string.
type CreateInput struct {
	Amount        *decimal.Decimal `json:"amount"`
	Category      string           `json:"category"`
	Description   string           `json:"description"`
	Date          string           `json:"date"`
	PaymentMethod string           `json:"paymentMethod"`
	Tags          []string         `json:"tags"`
}

// UpdateInput carries only the fields present in the request.
type UpdateInput struct {
	Amount        *decimal.Decimal `json:"amount"`
	Category      *string          `json:"category"`
	Description   *string          `json:"description"`
	Date          *string          `json:"date"`
	PaymentMethod *string          `json:"paymentMethod"`
	Tags          *[]string        `json:"tags"`
}

func parseAmount(raw json.RawMessage) (*decimal.Decimal, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(raw); err != nil {
		return nil, apperr.Validation([]string{"Amount must be a number"})
	}
	return &d, nil
}

func (in *CreateInput) UnmarshalJSON(b []byte) error {
	type plain CreateInput
	aux := struct {
		*plain
		Amount json.RawMessage `json:"amount"`
	}{plain: (*plain)(in)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	amt, err := parseAmount(aux.Amount)
	if err != nil {
		return err
	}
	in.Amount = amt
	return nil
}

func (in *UpdateInput) UnmarshalJSON(b []byte) error {
	type plain UpdateInput
	aux := struct {
		*plain
		Amount json.RawMessage `json:"amount"`
	}{plain: (*plain)(in)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	amt, err := parseAmount(aux.Amount)
	if err != nil {
		return err
	}
	in.Amount = amt
	return nil
}

// ParseDate accepts YYYY-MM-DD or RFC 3339 and returns UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// build turns a create request into a record, collecting every violation.
func (in CreateInput) build(now time.Time) (*Expense, error) {
	var v validate.Errors
	e := &Expense{
		Category:      strings.TrimSpace(in.Category),
		Description:   strings.TrimSpace(in.Description),
		PaymentMethod: strings.TrimSpace(in.PaymentMethod),
		Tags:          cleanTags(in.Tags),
		Date:          now.Truncate(time.Second),
	}
	if in.Amount == nil {
		v.Add("Amount is required")
	} else {
		e.Amount = *in.Amount
	}
	if e.PaymentMethod == "" {
		e.PaymentMethod = DefaultPaymentMethod
	}
	if strings.TrimSpace(in.Date) != "" {
		d, ok := ParseDate(in.Date)
		v.Check(ok, "Date must be YYYY-MM-DD or an RFC 3339 timestamp")
		e.Date = d
	}
	check(&v, e, in.Amount != nil)
	if err := v.Err(); err != nil {
		return nil, err
	}
	return e, nil
}

// apply merges the provided fields into e and validates the merged record.
func (in UpdateInput) apply(e *Expense) error {
	var v validate.Errors
	if in.Amount != nil {
		e.Amount = *in.Amount
	}
	if in.Category != nil {
		e.Category = strings.TrimSpace(*in.Category)
	}
	if in.Description != nil {
		e.Description = strings.TrimSpace(*in.Description)
	}
	if in.PaymentMethod != nil {
		e.PaymentMethod = strings.TrimSpace(*in.PaymentMethod)
	}
	if in.Tags != nil {
		e.Tags = cleanTags(*in.Tags)
	}
	if in.Date != nil {
		d, ok := ParseDate(*in.Date)
		v.Check(ok, "Date must be YYYY-MM-DD or an RFC 3339 timestamp")
		if ok {
			e.Date = d
		}
	}
	check(&v, e, true)
	return v.Err()
}

func check(v *validate.Errors, e *Expense, checkAmount bool) {
	if checkAmount {
		v.Check(e.Amount.IsPositive(), "Amount must be greater than 0")
		v.Check(e.Amount.Equal(e.Amount.Round(2)), "Amount can have at most 2 decimal places")
		v.Check(e.Amount.LessThan(maxAmount), "Amount must be less than 10000000000")
	}
	if e.Category == "" {
		v.Add("Category is required")
	} else {
		v.Check(validate.OneOf(e.Category, Categories...), "Category must be one of "+strings.Join(Categories, ", "))
	}
	if e.Description == "" {
		v.Add("Description is required")
	} else {
		v.Check(validate.Length(e.Description, 1, maxDescription), "Description cannot exceed 200 characters")
	}
	v.Check(validate.OneOf(e.PaymentMethod, PaymentMethods...), "Payment method must be one of "+strings.Join(PaymentMethods, ", "))
	v.Check(len(e.Tags) <= maxTags, "At most 20 tags are allowed")
	for _, t := range e.Tags {
		if !validate.Length(t, 1, maxTagLength) {
			v.Add("Tag %q exceeds 30 characters", t)
		}
	}
}
