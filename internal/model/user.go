package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/purse/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// User is an account holder. The login is the case-insensitive key and the
// password is kept only as a salted bcrypt hash.
type User struct {
	wallet       *Wallet
	login        string
	passwordHash string
}

// NormalizeLogin trims and lowercases a login.
func NormalizeLogin(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}

// NewUser hashes password with the given bcrypt cost and creates an empty wallet.
func NewUser(login, password string, cost int) (*User, error) {
	login = NormalizeLogin(login)
	if login == "" {
		return nil, fmt.Errorf("%w: login cannot be empty", common.ErrInvalidArgument)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password cannot be empty", common.ErrInvalidArgument)
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("%w: hashing password: %w", common.ErrInvalidArgument, err)
	}

	return &User{
		login:        login,
		passwordHash: string(hash),
		wallet:       NewWallet(login),
	}, nil
}

// RestoreUser rebuilds a user from a stored hash and wallet.
func RestoreUser(login, passwordHash string, wallet *Wallet) (*User, error) {
	login = NormalizeLogin(login)
	if login == "" {
		return nil, fmt.Errorf("%w: login cannot be empty", common.ErrInvalidArgument)
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, fmt.Errorf("%w: user %s has an unreadable password hash", common.ErrInvalidState, login)
	}
	if wallet == nil {
		wallet = NewWallet(login)
	}
	return &User{login: login, passwordHash: passwordHash, wallet: wallet}, nil
}

// Login returns the normalized login.
func (u *User) Login() string { return u.login }

// PasswordHash returns the stored bcrypt hash.
func (u *User) PasswordHash() string { return u.passwordHash }

// Wallet returns the user's wallet.
func (u *User) Wallet() *Wallet { return u.wallet }

// VerifyPassword checks password against the stored hash.
func (u *User) VerifyPassword(password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(u.passwordHash), []byte(password))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return fmt.Errorf("%w: wrong password for %s", common.ErrInvalidCredential, u.login)
	}
	return fmt.Errorf("%w: checking password for %s: %w", common.ErrInvalidCredential, u.login, err)
}
