package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"spendwise/internal/apperr"
	"spendwise/internal/db"
)

type StoreTestSuite struct {
	suite.Suite
	db    *db.DB
	store *Store
	ctx   context.Context
}

func (s *StoreTestSuite) SetupTest() {
	s.ctx = context.Background()
	d, err := db.Open(s.ctx, "sqlite://:memory:")
	s.Require().NoError(err)
	s.Require().NoError(db.RunMigrations(s.ctx, d))
	s.db = d
	s.store = NewStore(d, bcrypt.MinCost)
}

func (s *StoreTestSuite) TearDownTest() {
	s.db.Close()
}

func (s *StoreTestSuite) create(name, email string, role Role) *User {
	u, err := s.store.CreateUser(s.ctx, NewUser{Name: name, Email: email, Password: "secret1", Role: role})
	s.Require().NoError(err)
	return u
}

func (s *StoreTestSuite) TestCreateUserHashesAndNormalizes() {
	u := s.create("  Ana  ", "  Ana@Example.COM ", "")
	s.NotZero(u.ID)
	s.Equal("Ana", u.Name)
	s.Equal("ana@example.com", u.Email)
	s.Equal(RoleUser, u.Role)
	s.Equal("USD", u.Currency)
	s.Equal("light", u.Theme)
	s.NotEqual("secret1", u.PasswordHash)
	s.True(s.store.VerifySecret(u, "secret1"))
	s.False(s.store.VerifySecret(u, "secret2"))
}

func (s *StoreTestSuite) TestCreateUserDuplicateEmail() {
	s.create("Ana", "ana@example.com", RoleUser)
	_, err := s.store.CreateUser(s.ctx, NewUser{Name: "Other", Email: "ANA@example.com", Password: "secret1"})
	s.True(apperr.Is(err, apperr.KindDuplicateIdentity))
}

func (s *StoreTestSuite) TestCreateUserRejectsUnknownRole() {
	_, err := s.store.CreateUser(s.ctx, NewUser{Name: "Ana", Email: "ana@example.com", Password: "secret1", Role: "owner"})
	s.True(apperr.Is(err, apperr.KindValidation))
}

func (s *StoreTestSuite) TestGetByEmailIsCaseInsensitive() {
	created := s.create("Ana", "ana@example.com", RoleUser)
	u, err := s.store.GetByEmail(s.ctx, "ANA@EXAMPLE.COM")
	s.Require().NoError(err)
	s.Equal(created.ID, u.ID)

	_, err = s.store.GetByEmail(s.ctx, "nobody@example.com")
	s.ErrorIs(err, ErrUserNotFound)
}

func (s *StoreTestSuite) TestUpdateProfileMergesProvidedFields() {
	u := s.create("Ana", "ana@example.com", RoleUser)
	name, theme, bio := "Ana Maria", "dark", ""
	updated, err := s.store.UpdateProfile(s.ctx, u.ID, ProfileUpdate{Name: &name, Theme: &theme, Bio: &bio})
	s.Require().NoError(err)
	s.Equal("Ana Maria", updated.Name)
	s.Equal("dark", updated.Theme)
	s.Equal("USD", updated.Currency)

	fetched, err := s.store.GetByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("Ana Maria", fetched.Name)
	s.Equal("dark", fetched.Theme)

	_, err = s.store.UpdateProfile(s.ctx, 999, ProfileUpdate{Name: &name})
	s.ErrorIs(err, ErrUserNotFound)
}

func (s *StoreTestSuite) TestUpdateRole() {
	u := s.create("Ana", "ana@example.com", RoleUser)
	updated, err := s.store.UpdateRole(s.ctx, u.ID, RoleReadOnly)
	s.Require().NoError(err)
	s.Equal(RoleReadOnly, updated.Role)

	_, err = s.store.UpdateRole(s.ctx, u.ID, "superuser")
	s.True(apperr.Is(err, apperr.KindValidation))

	_, err = s.store.UpdateRole(s.ctx, 999, RoleAdmin)
	s.ErrorIs(err, ErrUserNotFound)
}

func (s *StoreTestSuite) TestDelete() {
	u := s.create("Ana", "ana@example.com", RoleUser)
	s.Require().NoError(s.store.Delete(s.ctx, u.ID))
	_, err := s.store.GetByID(s.ctx, u.ID)
	s.ErrorIs(err, ErrUserNotFound)
	s.ErrorIs(s.store.Delete(s.ctx, u.ID), ErrUserNotFound)
}

func (s *StoreTestSuite) TestListFiltersByRoleAndSearch() {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.store.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Minute) }

	s.create("Ana", "ana@example.com", RoleAdmin)
	s.create("Bruno", "bruno@example.com", RoleUser)
	s.create("Carla", "carla@mail.test", RoleUser)

	all, err := s.store.List(s.ctx, ListFilter{})
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal("Carla", all[0].Name)

	users, err := s.store.List(s.ctx, ListFilter{Role: RoleUser})
	s.Require().NoError(err)
	s.Len(users, 2)

	found, err := s.store.List(s.ctx, ListFilter{Search: "BRU"})
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal("Bruno", found[0].Name)

	byEmail, err := s.store.List(s.ctx, ListFilter{Search: "mail.test"})
	s.Require().NoError(err)
	s.Len(byEmail, 1)
}

func (s *StoreTestSuite) TestListSearchTreatsWildcardsLiterally() {
	s.create("Ana", "ana@example.com", RoleUser)
	s.create("Bruno", "bruno_b@example.com", RoleUser)

	for _, term := range []string{"%", "\\"} {
		none, err := s.store.List(s.ctx, ListFilter{Search: term})
		s.Require().NoError(err)
		s.Empty(none, term)
	}

	underscore, err := s.store.List(s.ctx, ListFilter{Search: "o_b"})
	s.Require().NoError(err)
	s.Require().Len(underscore, 1)
	s.Equal("Bruno", underscore[0].Name)

	single, err := s.store.List(s.ctx, ListFilter{Search: "a_a"})
	s.Require().NoError(err)
	s.Empty(single)
}

func (s *StoreTestSuite) TestOverview() {
	s.create("Ana", "ana@example.com", RoleAdmin)
	s.create("Bruno", "bruno@example.com", RoleUser)
	s.create("Carla", "carla@example.com", RoleUser)

	ov, err := s.store.Overview(s.ctx, 2)
	s.Require().NoError(err)
	s.EqualValues(3, ov.TotalUsers)
	s.Equal([]RoleCount{{Role: RoleAdmin, Count: 1}, {Role: RoleUser, Count: 2}}, ov.UsersByRole)
	s.Len(ov.RecentUsers, 2)
}

func (s *StoreTestSuite) TestSeedFromFile() {
	path := filepath.Join(s.T().TempDir(), "users.yaml")
	content := `users:
  - name: Admin
    email: admin@spendwise.local
    password: changeme
    role: admin
  - email: viewer@spendwise.local
    password: changeme
    role: read-only
  - email: ""
    password: skipped
`
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o600))
	s.Require().NoError(s.store.SeedFromFile(s.ctx, path))
	// Seeding twice keeps existing accounts.
	s.Require().NoError(s.store.SeedFromFile(s.ctx, path))

	admin, err := s.store.GetByEmail(s.ctx, "admin@spendwise.local")
	s.Require().NoError(err)
	s.Equal(RoleAdmin, admin.Role)

	viewer, err := s.store.GetByEmail(s.ctx, "viewer@spendwise.local")
	s.Require().NoError(err)
	s.Equal(RoleReadOnly, viewer.Role)
	s.Equal("viewer", viewer.Name)

	s.NoError(s.store.SeedFromFile(s.ctx, ""))
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}
