package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"spendwise/internal/apperr"
	"spendwise/internal/auth"
	"spendwise/internal/db"
)

const defaultDB = "sqlite://spendwise.db"

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(stderr)

	name := fs.String("name", "", "Display name (defaults to the part of the email before @)")
	email := fs.String("email", "", "Email address")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	role := fs.String("role", string(auth.RoleUser), "Role: admin, user or read-only")
	dsn := fs.String("db", "", "Database URL (defaults to SPENDWISE_DATABASE_URL, then "+defaultDB+")")
	cost := fs.Int("cost", 12, "bcrypt cost")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" {
		fmt.Fprintln(stdout, "Usage: adduser -email <email> [-name <name>] [-role <role>] [-password <password>] [-db <url>]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: email")
	}
	if !auth.Role(*role).Valid() {
		return fmt.Errorf("unknown role %q", *role)
	}

	password := *passwordFlag
	if password == "" {
		fmt.Fprint(stdout, "Password: ")
		var err error
		password, err = readPassword(stdin)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(stdout)
	}
	if len(strings.TrimSpace(password)) < 6 {
		return fmt.Errorf("password must be at least 6 characters")
	}

	if *dsn == "" {
		*dsn = os.Getenv("SPENDWISE_DATABASE_URL")
	}
	if *dsn == "" {
		*dsn = defaultDB
	}
	if *name == "" {
		*name = strings.SplitN(auth.NormalizeEmail(*email), "@", 2)[0]
	}
	if err := auth.ValidateRegistration(auth.Registration{Name: *name, Email: *email, Password: password}); err != nil {
		return err
	}

	ctx := context.Background()
	conn, err := db.Open(ctx, *dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer conn.Close()
	if err := db.RunMigrations(ctx, conn); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	store := auth.NewStore(conn, *cost)
	user, err := store.CreateUser(ctx, auth.NewUser{Name: *name, Email: *email, Password: password, Role: auth.Role(*role)})
	if err != nil {
		if apperr.Is(err, apperr.KindDuplicateIdentity) {
			return fmt.Errorf("user %s already exists", auth.NormalizeEmail(*email))
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(stdout, "User %s (%s) created successfully with ID %d\n", user.Email, user.Role, user.ID)
	return nil
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
