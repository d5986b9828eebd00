// Package identity registers farmers and verifies their credentials.
package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/agri-advisor/platform/pkg/common/models"
	"github.com/agri-advisor/platform/pkg/validation"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Store is implemented by Repository.
type Store interface {
	CreateUser(ctx context.Context, input CreateUserInput) (models.User, error)
	GetCredentials(ctx context.Context, email string) (models.User, string, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error)
}

type Service struct {
	store Store
	cost  int
}

func NewService(store Store) *Service {
	return &Service{store: store, cost: bcrypt.DefaultCost}
}

// Register validates the request and stores a bcrypt hash of the password.
// Validation failures are returned as *validation.Errors.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (models.User, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validation.Struct(req); err != nil {
		return models.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return models.User{}, err
	}

	return s.store.CreateUser(ctx, CreateUserInput{
		Email:        req.Email,
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: string(hash),
	})
}

// Authenticate never tells the caller whether the email exists.
func (s *Service) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	if email == "" || password == "" {
		return models.User{}, ErrInvalidCredentials
	}

	user, hash, err := s.store.GetCredentials(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (models.User, error) {
	return s.store.GetUserByID(ctx, id)
}
