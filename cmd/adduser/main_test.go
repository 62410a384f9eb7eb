package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/auth"
	"spendwise/internal/db"
)

func tempDSN(t *testing.T, name string) string {
	return "sqlite://" + filepath.Join(t.TempDir(), name)
}

func TestRun_Success(t *testing.T) {
	dsn := tempDSN(t, "success.db")
	stdout, stderr, stdin := new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer)

	args := []string{"-email", "Admin@Example.com", "-password", "secret1", "-role", "admin", "-db", dsn, "-cost", "4"}
	require.NoError(t, run(args, stdin, stdout, stderr))
	assert.Contains(t, stdout.String(), "User admin@example.com (admin) created successfully")

	ctx := context.Background()
	conn, err := db.Open(ctx, dsn)
	require.NoError(t, err)
	defer conn.Close()
	u, err := auth.NewStore(conn, 4).GetByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, u.Role)
	assert.Equal(t, "admin", u.Name)
}

func TestRun_DuplicateUser(t *testing.T) {
	dsn := tempDSN(t, "duplicate.db")
	stdout, stderr, stdin := new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer)
	args := []string{"-email", "ana@example.com", "-password", "secret1", "-db", dsn, "-cost", "4"}

	require.NoError(t, run(args, stdin, stdout, stderr), "first run should succeed")

	err := run(args, stdin, stdout, stderr)
	require.Error(t, err, "expected error on duplicate user")
	assert.Contains(t, err.Error(), "already exists")
}

func TestRun_MissingEmailFlag(t *testing.T) {
	stdout, stderr, stdin := new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer)

	err := run([]string{"-password", "secret1"}, stdin, stdout, stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required flags: email")
	assert.Contains(t, stdout.String(), "Usage:")
}

func TestRun_UnknownRole(t *testing.T) {
	stdout, stderr, stdin := new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer)
	err := run([]string{"-email", "ana@example.com", "-password", "secret1", "-role", "superuser"}, stdin, stdout, stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown role "superuser"`)
}

func TestRun_InteractivePassword(t *testing.T) {
	dsn := tempDSN(t, "interactive.db")
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	stdin := bytes.NewBufferString("interactive_secret\n")

	args := []string{"-email", "viewer@example.com", "-role", "read-only", "-db", dsn, "-cost", "4"}
	require.NoError(t, run(args, stdin, stdout, stderr))
	assert.Contains(t, stdout.String(), "Password: ")
	assert.Contains(t, stdout.String(), "created successfully")
}

func TestRun_ShortPassword(t *testing.T) {
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	stdin := bytes.NewBufferString("123\n")

	err := run([]string{"-email", "ana@example.com", "-db", tempDSN(t, "short.db")}, stdin, stdout, stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 6 characters")
}

func TestRun_LongPassword(t *testing.T) {
	stdout, stderr, stdin := new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer)
	args := []string{"-email", "ana@example.com", "-password", strings.Repeat("p", 80), "-db", tempDSN(t, "long.db"), "-cost", "4"}

	err := run(args, stdin, stdout, stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Password cannot exceed 72 bytes")
}

func TestRun_DatabaseFromEnv(t *testing.T) {
	dsn := tempDSN(t, "env.db")
	t.Setenv("SPENDWISE_DATABASE_URL", dsn)
	stdout, stderr, stdin := new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer)

	require.NoError(t, run([]string{"-email", "env@example.com", "-password", "secret1", "-cost", "4"}, stdin, stdout, stderr))

	ctx := context.Background()
	conn, err := db.Open(ctx, dsn)
	require.NoError(t, err)
	defer conn.Close()
	_, err = auth.NewStore(conn, 4).GetByEmail(ctx, "env@example.com")
	assert.NoError(t, err)
}
