package expenses

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts are JSON numbers on the wire.
	decimal.MarshalJSONWithoutQuotes = true
}

var Categories = []string{
	"Food & Dining",
	"Transportation",
	"Shopping",
	"Entertainment",
	"Bills & Utilities",
	"Healthcare",
	"Travel",
	"Education",
	"Personal Care",
	"Other",
}

var PaymentMethods = []string{
	"Cash",
	"Credit Card",
	"Debit Card",
	"Bank Transfer",
	"Digital Wallet",
}

const (
	DefaultPaymentMethod = "Cash"
	DefaultPageSize      = 10
	MaxPageSize          = 100
)

type Owner struct {
	ID    int64  `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Expense struct {
	ID            int64           `json:"_id"`
	UserID        int64           `json:"-"`
	Owner         Owner           `json:"user"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
	Description   string          `json:"description"`
	Date          time.Time       `json:"date"`
	PaymentMethod string          `json:"paymentMethod"`
	Tags          []string        `json:"tags"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Filter narrows a listing. Zero values match everything; From and To are
// both inclusive.
type Filter struct {
	Category string
	From     time.Time
	To       time.Time
}

type Page struct {
	Expenses    []Expense `json:"expenses"`
	Total       int64     `json:"total"`
	TotalPages  int64     `json:"totalPages"`
	CurrentPage int       `json:"currentPage"`
}
