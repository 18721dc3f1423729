package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"libraryapi/apperrors"
	"libraryapi/models"
	"libraryapi/repository"
	"libraryapi/utils"
)

var (
	errInvalidCredentials = apperrors.Unauthorized("Invalid credentials")
	errAccountInactive    = apperrors.Unauthorized("Account is deactivated")
)

type UserService struct {
	users    repository.UserRepository
	secret   []byte
	tokenTTL time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewUserService(users repository.UserRepository, secret []byte, tokenTTL time.Duration, logger *slog.Logger) *UserService {
	return &UserService{users: users, secret: secret, tokenTTL: tokenTTL, logger: logger, now: time.Now}
}

func (s *UserService) TokenTTL() time.Duration {
	return s.tokenTTL
}

func (s *UserService) Register(ctx context.Context, in *models.UserRegistration) (*models.UserResponse, error) {
	in.Normalize()
	if err := utils.Validate(in); err != nil {
		return nil, err
	}

	u, err := s.create(ctx, in.Username, in.Email, in.Password, models.RoleUser)
	if err != nil {
		return nil, err
	}
	return s.respond(u)
}

func (s *UserService) create(ctx context.Context, username, email, password, role string) (*models.User, error) {
	hash, err := utils.HashPass(password)
	if err != nil {
		return nil, apperrors.Internal(err, "could not hash password")
	}

	now := s.now()
	u := &models.User{
		Username:  username,
		Email:     email,
		Password:  hash,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	u.Password = ""
	s.logger.Info("user registered", slog.String("user_id", u.ID.Hex()), slog.String("role", role))
	return u, nil
}

func (s *UserService) Login(ctx context.Context, in *models.UserLogin) (*models.UserResponse, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := utils.Validate(in); err != nil {
		return nil, err
	}

	u, err := s.users.FindByEmail(ctx, in.Email)
	if apperrors.Is(err, apperrors.KindNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := utils.ComparePass(in.Password, u.Password); err != nil {
		if !errors.Is(err, utils.ErrPasswordMismatch) {
			s.logger.Error("stored password hash unreadable", slog.String("user_id", u.ID.Hex()), slog.Any("error", err))
		}
		return nil, errInvalidCredentials
	}
	if !u.IsActive {
		return nil, errAccountInactive
	}

	u.Password = ""
	return s.respond(u)
}

func (s *UserService) respond(u *models.User) (*models.UserResponse, error) {
	token, err := utils.SignedToken(u.ID.Hex(), u.Role, s.secret, s.tokenTTL)
	if err != nil {
		return nil, apperrors.Internal(err, "could not issue token")
	}
	return &models.UserResponse{User: u, Token: token}, nil
}

// Principal resolves a token subject to the current account state.
func (s *UserService) Principal(ctx context.Context, id string) (models.Principal, error) {
	u, err := s.users.FindByID(ctx, id)
	if apperrors.Is(err, apperrors.KindNotFound) {
		return models.Principal{}, apperrors.Unauthorized("User not found")
	}
	if err != nil {
		return models.Principal{}, err
	}
	if !u.IsActive {
		return models.Principal{}, errAccountInactive
	}
	return u.Principal(), nil
}

func (s *UserService) Profile(ctx context.Context, principal models.Principal) (*models.User, error) {
	return s.users.FindByID(ctx, principal.ID)
}

func (s *UserService) UpdateProfile(ctx context.Context, principal models.Principal, in *models.ProfileUpdate) (*models.User, error) {
	in.Normalize()
	if err := utils.Validate(in); err != nil {
		return nil, err
	}

	id, err := ownerID(principal)
	if err != nil {
		return nil, err
	}

	upd := models.UserUpdate{Username: in.Username, Email: in.Email, UpdatedAt: s.now()}
	if in.Password != nil {
		hash, err := utils.HashPass(*in.Password)
		if err != nil {
			return nil, apperrors.Internal(err, "could not hash password")
		}
		upd.Password = &hash
	}
	return s.users.Update(ctx, id, upd)
}

func (s *UserService) List(ctx context.Context) ([]*models.User, error) {
	return s.users.List(ctx)
}

// Delete removes another account. Books the user added stay in the catalog.
func (s *UserService) Delete(ctx context.Context, principal models.Principal, id string) error {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if u.ID.Hex() == principal.ID {
		return apperrors.Conflict("You cannot delete your own account")
	}
	if err := s.users.Delete(ctx, u.ID); err != nil {
		return err
	}
	s.logger.Info("user deleted", slog.String("user_id", id), slog.String("by", principal.ID))
	return nil
}

// AdminAccount is the account EnsureAdmin seeds.
type AdminAccount struct {
	Username string
	Email    string
	Password string
}

// EnsureAdmin creates the admin account unless its email is already taken.
func (s *UserService) EnsureAdmin(ctx context.Context, acct AdminAccount) error {
	email := strings.ToLower(strings.TrimSpace(acct.Email))
	existing, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		if existing.Role != models.RoleAdmin {
			s.logger.Warn("admin email belongs to a non-admin account", slog.String("email", email))
		}
		return nil
	}
	if !apperrors.Is(err, apperrors.KindNotFound) {
		return err
	}

	reg := &models.UserRegistration{Username: acct.Username, Email: email, Password: acct.Password}
	reg.Normalize()
	if err := utils.Validate(reg); err != nil {
		return err
	}
	_, err = s.create(ctx, reg.Username, reg.Email, reg.Password, models.RoleAdmin)
	return err
}
