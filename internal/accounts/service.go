package accounts

import (
	"context"
	"strings"
	"time"
)

// Service coordinates account opening and lookup.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// OpenInput carries the details required to open an account.
type OpenInput struct {
	OwnerName  string
	OwnerEmail string
}

// Open creates a new account with a zero balance.
func (s *Service) Open(ctx context.Context, input OpenInput) (Account, error) {
	name := strings.TrimSpace(input.OwnerName)
	email := strings.TrimSpace(input.OwnerEmail)
	if name == "" || email == "" {
		return Account{}, ErrOwnerRequired
	}
	return s.repo.Create(ctx, name, email, s.now().UTC())
}

// Get returns an account by id.
func (s *Service) Get(ctx context.Context, id int64) (Account, error) {
	return s.repo.Get(ctx, id)
}

// List returns every account ordered by id.
func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.repo.List(ctx)
}
