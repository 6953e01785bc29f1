package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Service defines the interface for user-related business logic.
type Service interface {
	Register(ctx context.Context, email, password, name string) (*User, error)
	Get(ctx context.Context, id uuid.UUID) (*User, error)

	// EnsureOperator registers the bootstrap operator unless one already
	// exists under that email. Called at startup so a fresh deployment has a
	// login before any operator can mint another.
	EnsureOperator(ctx context.Context, email, password, name string) error
}

type service struct {
	repo Repository
}

// NewService creates a new user service.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Register(ctx context.Context, email, password, name string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) EnsureOperator(ctx context.Context, email, password, name string) error {
	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("lookup operator: %w", err)
	}
	if _, err := s.Register(ctx, email, password, name); err != nil {
		return fmt.Errorf("bootstrap operator: %w", err)
	}
	return nil
}
