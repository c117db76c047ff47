// Command adduser creates an account directly in the database. Meant for
// bootstrapping a deployment before the HTTP API is reachable.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strings"

	"github.com/gofrs/uuid/v5"
	"golang.org/x/term"

	"expense-manager/internal/crypto"
	"expense-manager/internal/model"
	"expense-manager/internal/repository/postgres"
	"expense-manager/internal/service"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(stderr)

	email := fs.String("email", "", "Email address")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	dsn := fs.String("dsn", os.Getenv("DATABASE_URL"), "PostgreSQL DSN (defaults to DATABASE_URL)")
	cost := fs.Int("cost", crypto.DefaultCost, "bcrypt work factor")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" {
		fmt.Fprintln(stdout, "Usage: adduser -email <email> [-password <password>] [-dsn <dsn>]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: email")
	}
	if *dsn == "" {
		return fmt.Errorf("missing DSN: pass -dsn or set DATABASE_URL")
	}

	normalized := service.NormalizeEmail(*email)
	if _, err := mail.ParseAddress(normalized); err != nil {
		return fmt.Errorf("invalid email %q", *email)
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
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("password cannot be empty")
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, *dsn)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer db.Close()

	hash, err := crypto.NewHasher(*cost).Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return err
	}
	u := &model.User{ID: id, Email: normalized, PwdHash: hash}
	if err := postgres.NewUserRepo(db).Create(ctx, u); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(stdout, "User %s created successfully with ID %s\n", normalized, id)
	return nil
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// Fallback for non-terminal input (tests, pipes)
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
