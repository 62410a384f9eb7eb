package expenses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"spendwise/internal/apperr"
	"spendwise/internal/db"
)

const selectExpense = `
	SELECT e.id, e.user_id, u.name, u.email, e.amount, e.category, e.description,
	       e.date, e.payment_method, e.tags, e.created_at, e.updated_at
	FROM expenses e
	JOIN users u ON u.id = e.user_id`

// Store is the owner-scoped expense repository. Every operation takes the
// owner id; a record belonging to someone else is reported as not found.
type Store struct {
	db  *db.DB
	now func() time.Time
}

func NewStore(d *db.DB) *Store {
	return &Store{db: d, now: func() time.Time { return time.Now().UTC() }}
}

func errNotFound() error { return apperr.NotFound("Expense not found") }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (*Expense, error) {
	e := &Expense{}
	var tags string
	if err := row.Scan(&e.ID, &e.UserID, &e.Owner.Name, &e.Owner.Email, &e.Amount,
		&e.Category, &e.Description, &e.Date, &e.PaymentMethod, &tags,
		&e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Owner.ID = e.UserID
	e.Date = e.Date.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	e.Tags = []string{}
	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &e.Tags); err != nil {
			return nil, fmt.Errorf("decode tags of expense %d: %w", e.ID, err)
		}
	}
	return e, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	return string(b), err
}

func where(ownerID int64, f Filter) (string, []any) {
	clauses := []string{"e.user_id = $1"}
	args := []any{ownerID}
	argIdx := 2

	if f.Category != "" && f.Category != "all" {
		clauses = append(clauses, "e.category = $"+strconv.Itoa(argIdx))
		args = append(args, f.Category)
		argIdx++
	}
	if !f.From.IsZero() {
		clauses = append(clauses, "e.date >= $"+strconv.Itoa(argIdx))
		args = append(args, f.From.UTC())
		argIdx++
	}
	if !f.To.IsZero() {
		clauses = append(clauses, "e.date <= $"+strconv.Itoa(argIdx))
		args = append(args, f.To.UTC())
		argIdx++
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// List returns one page of the owner's expenses, newest first, with the
// total count of matches across all pages.
func (s *Store) List(ctx context.Context, ownerID int64, f Filter, page, limit int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	cond, args := where(ownerID, f)

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM expenses e"+cond, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count expenses: %w", err)
	}

	n := len(args)
	query := selectExpense + cond +
		" ORDER BY e.date DESC, e.id DESC LIMIT $" + strconv.Itoa(n+1) + " OFFSET $" + strconv.Itoa(n+2)
	args = append(args, limit, (page-1)*limit)

	items, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return &Page{
		Expenses:    items,
		Total:       total,
		TotalPages:  (total + int64(limit) - 1) / int64(limit),
		CurrentPage: page,
	}, nil
}

// All returns every expense of the owner in one read, for aggregation.
func (s *Store) All(ctx context.Context, ownerID int64) ([]Expense, error) {
	cond, args := where(ownerID, Filter{})
	items, err := s.query(ctx, selectExpense+cond+" ORDER BY e.date ASC, e.id ASC", args...)
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}
	return items, nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Expense, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	return result, rows.Err()
}

func (s *Store) Get(ctx context.Context, id, ownerID int64) (*Expense, error) {
	row := s.db.QueryRowContext(ctx, selectExpense+" WHERE e.id = $1 AND e.user_id = $2", id, ownerID)
	e, err := scanExpense(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errNotFound()
		}
		return nil, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

func (s *Store) Create(ctx context.Context, ownerID int64, in CreateInput) (*Expense, error) {
	now := s.now()
	e, err := in.build(now)
	if err != nil {
		return nil, err
	}
	tags, err := encodeTags(e.Tags)
	if err != nil {
		return nil, err
	}
	const q = `
		INSERT INTO expenses (user_id, amount, category, description, date, payment_method, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	var id int64
	if err := s.db.QueryRowContext(ctx, q, ownerID, e.Amount, e.Category, e.Description,
		e.Date, e.PaymentMethod, tags, now, now).Scan(&id); err != nil {
		return nil, fmt.Errorf("insert expense: %w", err)
	}
	return s.Get(ctx, id, ownerID)
}

// Update merges in into the owner's expense and validates the result before
// writing it back.
func (s *Store) Update(ctx context.Context, id, ownerID int64, in UpdateInput) (*Expense, error) {
	e, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if err := in.apply(e); err != nil {
		return nil, err
	}
	tags, err := encodeTags(e.Tags)
	if err != nil {
		return nil, err
	}
	const q = `
		UPDATE expenses
		SET amount = $1, category = $2, description = $3, date = $4, payment_method = $5, tags = $6, updated_at = $7
		WHERE id = $8 AND user_id = $9
	`
	res, err := s.db.ExecContext(ctx, q, e.Amount, e.Category, e.Description, e.Date,
		e.PaymentMethod, tags, s.now(), id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("update expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, errNotFound()
	}
	return s.Get(ctx, id, ownerID)
}

func (s *Store) Delete(ctx context.Context, id, ownerID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errNotFound()
	}
	return nil
}
