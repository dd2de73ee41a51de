// Package finance holds the user registry and the sessions that drive a
// user's ledger: authentication, income and expense entry, budgets,
// transfers between users and the aggregate views over a wallet.
package finance

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/model"
	"golang.org/x/crypto/bcrypt"
)

// Service owns every registered user. It is not safe for concurrent use.
type Service struct {
	users        map[string]*model.User
	passwordCost int
}

// Option configures a Service.
type Option func(*Service)

// WithPasswordCost sets the bcrypt cost used for new passwords.
func WithPasswordCost(cost int) Option {
	return func(s *Service) {
		s.passwordCost = cost
	}
}

// NewService creates a service with an empty registry.
func NewService(opts ...Option) *Service {
	s := &Service{
		users:        make(map[string]*model.User),
		passwordCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a user and an empty wallet. It does not log in.
func (s *Service) Register(login, password string) (*model.User, error) {
	key := model.NormalizeLogin(login)
	if key == "" {
		return nil, fmt.Errorf("%w: login cannot be empty", common.ErrInvalidArgument)
	}
	if strings.TrimSpace(password) == "" {
		return nil, fmt.Errorf("%w: password cannot be empty", common.ErrInvalidArgument)
	}
	if _, taken := s.users[key]; taken {
		return nil, fmt.Errorf("%w: user %s", common.ErrAlreadyExists, key)
	}

	user, err := model.NewUser(key, password, s.passwordCost)
	if err != nil {
		return nil, err
	}
	s.users[key] = user

	slog.Info("User registered", "login", key)
	return user, nil
}

// InitializeUsers replaces the registry with a loaded snapshot.
func (s *Service) InitializeUsers(users map[string]*model.User) {
	s.users = make(map[string]*model.User, len(users))
	for _, u := range users {
		if u != nil {
			s.users[u.Login()] = u
		}
	}
	slog.Debug("User registry initialized", "users", len(s.users))
}

// Users returns the registry keyed by login, for persisting.
func (s *Service) Users() map[string]*model.User {
	out := make(map[string]*model.User, len(s.users))
	for k, u := range s.users {
		out[k] = u
	}
	return out
}

// Logins returns every registered login sorted.
func (s *Service) Logins() []string {
	out := make([]string, 0, len(s.users))
	for k := range s.users {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// User looks up a user by login.
func (s *Service) User(login string) (*model.User, bool) {
	u, ok := s.users[model.NormalizeLogin(login)]
	return u, ok
}

// Authenticate checks a login and password without opening a session.
func (s *Service) Authenticate(login, password string) (*model.User, error) {
	key := model.NormalizeLogin(login)
	user, ok := s.users[key]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", common.ErrNotFound, key)
	}
	if err := user.VerifyPassword(password); err != nil {
		return nil, err
	}
	return user, nil
}

// NewSession returns a logged-out session bound to this registry.
func (s *Service) NewSession() *Session {
	return newSession(s)
}
