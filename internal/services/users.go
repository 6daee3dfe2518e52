package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// ErrInvalidCredentials is returned for an unknown user or a wrong password.
var ErrInvalidCredentials = errors.New("invalid username or password")

const minPasswordLength = 8

// Users manages user records. Passwords are stored as bcrypt hashes only.
type Users struct {
	store store.UserStore
	cost  int
}

func NewUsers(s store.UserStore) *Users {
	return &Users{store: s, cost: bcrypt.DefaultCost}
}

// Register hashes password and creates the user. A taken username is
// core.ErrConflict.
func (u *Users) Register(ctx context.Context, username, password string) (core.User, error) {
	username = strings.TrimSpace(username)

	v := &core.ValidationError{}
	if username == "" {
		v.Add("username", "username is required")
	}
	if len(password) < minPasswordLength {
		v.Add("password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if len(password) > 72 {
		v.Add("password", "password must be at most 72 bytes")
	}
	if err := v.Err(); err != nil {
		return core.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), u.cost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := u.store.CreateUser(ctx, core.NewUser{Username: username, PasswordHash: string(hash)})
	if err != nil {
		return core.User{}, fmt.Errorf("create user %q: %w", username, err)
	}
	return user, nil
}

// Authenticate returns the user when password matches the stored hash.
func (u *Users) Authenticate(ctx context.Context, username, password string) (core.User, error) {
	user, err := u.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return core.User{}, ErrInvalidCredentials
	}
	return user, nil
}
