package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

type Service interface {
	CreateUser(ctx context.Context, user *User) (*User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	UpdateUser(ctx context.Context, user *User) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// CreateUser expects the raw password in PasswordHash and replaces it with its bcrypt hash.
func (s *service) CreateUser(ctx context.Context, user *User) (*User, error) {
	if user.PasswordHash == "" {
		return nil, ErrEmptyPassword
	}
	hashPasswordBytes, err := bcrypt.GenerateFromPassword([]byte(user.PasswordHash), bcrypt.DefaultCost)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to generate password hash")
		return nil, fmt.Errorf("service: internal error hashing password: %w", err)
	}
	user.PasswordHash = string(hashPasswordBytes)
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	createdID, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			return nil, ErrEmailExists
		}
		log.Error().Err(err).Str("email", user.Email).Msg("service: failed to create user in repository")
		return nil, fmt.Errorf("service: failed to save user: %w", err)
	}

	user.ID = createdID
	log.Info().Stringer("user_id", createdID).Bool("is_admin", user.IsAdmin).Msg("user created")

	return user, nil
}

func (s *service) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}

		log.Error().Err(err).Stringer("user_id", id).Msg("service: failed to get user by id")
		return nil, fmt.Errorf("service: failed to get user by id '%s': %w", id, err)
	}

	return user, nil
}

func (s *service) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}

		log.Error().Err(err).Msg("service: failed to get user by email")
		return nil, fmt.Errorf("service: failed to get user by email '%s': %w", email, err)
	}

	return user, nil
}

func (s *service) ListUsers(ctx context.Context) ([]User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list users")
		return nil, fmt.Errorf("service: failed to list users: %w", err)
	}
	return users, nil
}

// UpdateUser rehashes PasswordHash when it is set; empty keeps the current password.
func (s *service) UpdateUser(ctx context.Context, user *User) error {
	if user.PasswordHash != "" {
		newPassword, err := bcrypt.GenerateFromPassword([]byte(user.PasswordHash), bcrypt.DefaultCost)
		if err != nil {
			log.Error().Err(err).Msg("service: failed to generate password hash")
			return fmt.Errorf("service: failed to generate hash password: %w", err)
		}

		user.PasswordHash = string(newPassword)
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	err := s.repo.Update(ctx, user)
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			return ErrEmailExists
		}
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}

		log.Error().Err(err).Stringer("user_id", user.ID).Msg("service: failed to update user")
		return fmt.Errorf("service: failed to update user by id '%s': %w", user.ID.String(), err)
	}

	return nil
}

// DeleteUser refuses every admin account, not only the last one.
func (s *service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	existing, err := s.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.IsAdmin {
		log.Warn().Stringer("user_id", id).Msg("service: refused to delete admin user")
		return ErrCannotDeleteAdmin
	}

	err = s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}

		log.Error().Err(err).Stringer("user_id", id).Msg("service: failed to delete user")
		return fmt.Errorf("service: failed to delete user by id '%s': %w", id, err)
	}

	log.Info().Stringer("user_id", id).Msg("user deleted")
	return nil
}
