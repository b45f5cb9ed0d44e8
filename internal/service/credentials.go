package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/dormboard/internal/model"
	"github.com/iliyamo/dormboard/internal/repository"
	"github.com/iliyamo/dormboard/internal/utils"
)

// PasswordDigest is a bcrypt hash.  Only digests reach the store.
type PasswordDigest string

// CredentialStore registers and authenticates accounts.
type CredentialStore struct {
	users *repository.UserRepo
	cost  int
	log   *zap.Logger
}

func NewCredentialStore(users *repository.UserRepo, bcryptCost int, log *zap.Logger) *CredentialStore {
	return &CredentialStore{users: users, cost: bcryptCost, log: log}
}

// Digest hashes a raw password.
func (s *CredentialStore) Digest(raw string) (PasswordDigest, error) {
	h, err := utils.HashPassword(raw, s.cost)
	if err != nil {
		return "", internal("hash password", err)
	}
	return PasswordDigest(h), nil
}

// CheckAvailable fails with ErrDuplicateIdentity when the username or the
// email is already registered.
func (s *CredentialStore) CheckAvailable(ctx context.Context, username, email string) error {
	taken, err := s.users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return internal("check identity", err)
	}
	if taken {
		return ErrDuplicateIdentity
	}
	return nil
}

// RegisterTx creates the account inside tx.  A unique-key violation from
// a concurrent registration is reported as ErrDuplicateIdentity.
func (s *CredentialStore) RegisterTx(ctx context.Context, tx *sql.Tx, username, email string, digest PasswordDigest) (uint64, error) {
	id, err := s.users.CreateTx(ctx, tx, strings.TrimSpace(username), email, string(digest))
	if errors.Is(err, repository.ErrDuplicate) {
		return 0, ErrDuplicateIdentity
	}
	if err != nil {
		return 0, internal("create user", err)
	}
	return id, nil
}

// Authenticate checks a username or email against the stored digest.  An
// unknown identity and a wrong password produce the same error.  The
// last-login stamp is best effort.
func (s *CredentialStore) Authenticate(ctx context.Context, identifier, raw string) (model.User, error) {
	u, err := s.users.GetByIdentifier(ctx, identifier)
	if errors.Is(err, repository.ErrUserNotFound) {
		return model.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return model.User{}, internal("load user", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, raw) {
		return model.User{}, ErrInvalidCredentials
	}
	if err := s.users.TouchLastLogin(ctx, u.ID); err != nil {
		s.log.Warn("update last login failed", zap.Uint64("user_id", u.ID), zap.Error(err))
	}
	return u, nil
}

// User loads an account by id.
func (s *CredentialStore) User(ctx context.Context, id uint64) (model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return model.User{}, newErr(KindUnauthorized, "unknown_user", "account no longer exists")
	}
	if err != nil {
		return model.User{}, internal("load user", err)
	}
	return u, nil
}
