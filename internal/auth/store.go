package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"spendwise/internal/apperr"
	"spendwise/internal/db"
)

var ErrUserNotFound = errors.New("user not found")

const userColumns = `id, name, email, password_hash, role, avatar, bio, currency, theme, created_at, updated_at`

type Store struct {
	db   *db.DB
	cost int
	now  func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

func NewStore(d *db.DB, cost int) *Store {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Store{db: d, cost: cost, now: func() time.Time { return time.Now().UTC() }}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	u := &User{}
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role,
		&u.Avatar, &u.Bio, &u.Currency, &u.Theme, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

func (s *Store) getOne(ctx context.Context, where string, arg any) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where+` = $1`, arg)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.getOne(ctx, "email", NormalizeEmail(email))
}

func (s *Store) GetByID(ctx context.Context, id int64) (*User, error) {
	return s.getOne(ctx, "id", id)
}

// CreateUser hashes the password and inserts the account. An email that is
// already registered yields a duplicate identity error, including when two
// registrations race past the existence check.
func (s *Store) CreateUser(ctx context.Context, nu NewUser) (*User, error) {
	email := NormalizeEmail(nu.Email)
	if nu.Role == "" {
		nu.Role = RoleUser
	}
	if !nu.Role.Valid() {
		return nil, apperr.Validation([]string{fmt.Sprintf("Role %q is not supported", nu.Role)})
	}

	if _, err := s.GetByEmail(ctx, email); err == nil {
		return nil, errDuplicate()
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	u := &User{
		Name:         strings.TrimSpace(nu.Name),
		Email:        email,
		PasswordHash: string(hash),
		Role:         nu.Role,
		Currency:     "USD",
		Theme:        "light",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	const q = `
		INSERT INTO users (name, email, password_hash, role, avatar, bio, currency, theme, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	err = s.db.QueryRowContext(ctx, q, u.Name, u.Email, u.PasswordHash, u.Role,
		u.Avatar, u.Bio, u.Currency, u.Theme, u.CreatedAt, u.UpdatedAt).Scan(&u.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, errDuplicate()
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func errDuplicate() error {
	return apperr.New(apperr.KindDuplicateIdentity, "User already exists with this email")
}

// VerifySecret compares candidate against the stored hash in constant time.
func (s *Store) VerifySecret(u *User, candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(candidate)) == nil
}

// burnCompare spends one comparison at the store's cost for an unknown email,
// so a miss takes as long as a wrong password.
func (s *Store) burnCompare(candidate string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("spendwise-unknown-account"), s.cost)
	})
	_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(candidate))
}

func (s *Store) UpdateProfile(ctx context.Context, id int64, p ProfileUpdate) (*User, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Name != nil {
		u.Name = strings.TrimSpace(*p.Name)
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.Currency != nil {
		u.Currency = *p.Currency
	}
	if p.Theme != nil {
		u.Theme = *p.Theme
	}
	u.UpdatedAt = s.now()

	const q = `
		UPDATE users SET name = $1, avatar = $2, bio = $3, currency = $4, theme = $5, updated_at = $6
		WHERE id = $7
	`
	res, err := s.db.ExecContext(ctx, q, u.Name, u.Avatar, u.Bio, u.Currency, u.Theme, u.UpdatedAt, id)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *Store) UpdateRole(ctx context.Context, id int64, role Role) (*User, error) {
	if !role.Valid() {
		return nil, apperr.Validation([]string{"Role must be one of admin, user, read-only"})
	}
	res, err := s.db.ExecContext(ctx, `UPDATE users SET role = $1, updated_at = $2 WHERE id = $3`, role, s.now(), id)
	if err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrUserNotFound
	}
	return s.GetByID(ctx, id)
}

// Delete removes the account; its expenses go with it.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// List returns accounts newest first, optionally narrowed to one role and to
// names or emails containing search.
func (s *Store) List(ctx context.Context, f ListFilter) ([]User, error) {
	clauses := []string{"1=1"}
	args := []any{}
	argIdx := 1

	if f.Role != "" {
		clauses = append(clauses, "role = $"+strconv.Itoa(argIdx))
		args = append(args, f.Role)
		argIdx++
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		p := "$" + strconv.Itoa(argIdx)
		clauses = append(clauses, "(LOWER(name) LIKE "+p+` ESCAPE '\' OR email LIKE `+p+` ESCAPE '\')`)
		args = append(args, "%"+likeEscaper.Replace(strings.ToLower(search))+"%")
		argIdx++
	}

	query := "SELECT " + userColumns + " FROM users WHERE " +
		strings.Join(clauses, " AND ") + " ORDER BY created_at DESC, id DESC"
	return s.query(ctx, query, args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *u)
	}
	return result, rows.Err()
}

// Overview summarizes the directory for the admin dashboard.
func (s *Store) Overview(ctx context.Context, recent int) (*Overview, error) {
	ov := &Overview{UsersByRole: []RoleCount{}}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&ov.TotalUsers); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role ORDER BY role`)
	if err != nil {
		return nil, fmt.Errorf("count roles: %w", err)
	}
	for rows.Next() {
		var rc RoleCount
		if err := rows.Scan(&rc.Role, &rc.Count); err != nil {
			rows.Close()
			return nil, err
		}
		ov.UsersByRole = append(ov.UsersByRole, rc)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	ov.RecentUsers, err = s.query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC LIMIT $1`, recent)
	if err != nil {
		return nil, fmt.Errorf("recent users: %w", err)
	}
	return ov, nil
}

type usersFile struct {
	Users []struct {
		Name     string `yaml:"name"`
		Email    string `yaml:"email"`
		Password string `yaml:"password"`
		Role     Role   `yaml:"role"`
	} `yaml:"users"`
}

// SeedFromFile creates the accounts listed in a YAML file, skipping any whose
// email already exists. An empty path is a no-op.
func (s *Store) SeedFromFile(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var uf usersFile
	if err := yaml.Unmarshal(data, &uf); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	for _, u := range uf.Users {
		if u.Email == "" || u.Password == "" {
			continue
		}
		name := u.Name
		if name == "" {
			name = strings.SplitN(u.Email, "@", 2)[0]
		}
		_, err := s.CreateUser(ctx, NewUser{Name: name, Email: u.Email, Password: u.Password, Role: u.Role})
		if err != nil && !apperr.Is(err, apperr.KindDuplicateIdentity) {
			return fmt.Errorf("seed %s: %w", NormalizeEmail(u.Email), err)
		}
	}
	return nil
}
