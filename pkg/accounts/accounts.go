// Package accounts registers and authenticates users and manages their
// refresh tokens. It is shared by the HTTP server and worktrackctl.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"worktrack/models"
	"worktrack/pkg/auth"
	"worktrack/pkg/dberr"
)

var (
	ErrInvalidUser    = errors.New("invalid registration")
	ErrUserExists     = errors.New("user already exists")
	ErrInvalidRefresh = errors.New("invalid or expired refresh token")
	ErrTokenNotFound  = errors.New("refresh token not found")
)

type Service struct {
	db         *gorm.DB
	cost       int
	refreshTTL time.Duration
	now        func() time.Time
}

func NewService(db *gorm.DB, bcryptCost int, refreshTTL time.Duration) *Service {
	return &Service{db: db, cost: bcryptCost, refreshTTL: refreshTTL, now: time.Now}
}

var validate = validator.New()

// Registration carries the same rules as the register endpoint.
type Registration struct {
	Username   string   `validate:"required,min=3,max=50"`
	Email      string   `validate:"required,email,max=100"`
	Password   string   `validate:"required,min=6"`
	HourlyRate *float64 `validate:"omitempty,gte=0"`
}

// Validate reports every broken rule in one ErrInvalidUser.
func (r Registration) Validate() error {
	err := validate.Struct(r)
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return err
	}
	msgs := make([]string, 0, len(fields))
	for _, fe := range fields {
		msgs = append(msgs, fmt.Sprintf("%s fails %s", strings.ToLower(fe.Field()), ruleText(fe)))
	}
	return fmt.Errorf("%w: %s", ErrInvalidUser, strings.Join(msgs, "; "))
}

func ruleText(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}

// Register creates the user and the default weekly schedule in one
// transaction. A taken username or email yields ErrUserExists.
func (s *Service) Register(ctx context.Context, r Registration) (models.User, error) {
	username := strings.TrimSpace(r.Username)
	email := strings.ToLower(strings.TrimSpace(r.Email))

	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? OR email = ?", username, email).Count(&n).Error; err != nil {
		return models.User{}, fmt.Errorf("check existing user: %w", err)
	}
	if n > 0 {
		return models.User{}, ErrUserExists
	}

	hash, err := auth.HashPassword(r.Password, s.cost)
	if err != nil {
		return models.User{}, err
	}
	user := models.User{
		Username:       username,
		Email:          email,
		HashedPassword: hash,
		HourlyRate:     models.DefaultHourlyRate,
	}
	if r.HourlyRate != nil {
		user.HourlyRate = *r.HourlyRate
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		schedule := models.DefaultSchedule(user.ID)
		return tx.Create(&schedule).Error
	})
	if err != nil {
		// lost a race with a concurrent registration
		if dberr.IsUniqueViolation(err) {
			return models.User{}, ErrUserExists
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Authenticate checks an email and password pair.
func (s *Service) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if dberr.IsNotFound(err) {
			return models.User{}, auth.ErrInvalidCredentials
		}
		return models.User{}, fmt.Errorf("load user: %w", err)
	}
	if err := auth.CheckPassword(user.HashedPassword, password); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// FindByUsername loads a user by name.
func (s *Service) FindByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	return user, err
}

// IssueRefresh stores the hash of a new refresh token and returns the raw token.
func (s *Service) IssueRefresh(ctx context.Context, userID uint) (string, error) {
	return s.issueRefresh(s.db.WithContext(ctx), userID)
}

func (s *Service) issueRefresh(tx *gorm.DB, userID uint) (string, error) {
	raw, hash, err := auth.NewRefreshToken()
	if err != nil {
		return "", err
	}
	rt := models.RefreshToken{UserID: userID, TokenHash: hash, ExpiresAt: s.now().Add(s.refreshTTL)}
	if err := tx.Create(&rt).Error; err != nil {
		return "", fmt.Errorf("store refresh token: %w", err)
	}
	return raw, nil
}

// Rotate revokes a usable refresh token and issues its replacement. A token
// can be rotated once; replaying it yields ErrInvalidRefresh.
func (s *Service) Rotate(ctx context.Context, raw string) (models.User, string, error) {
	var (
		user  models.User
		fresh string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rt models.RefreshToken
		if err := tx.Where("token_hash = ?", auth.HashRefreshToken(raw)).First(&rt).Error; err != nil {
			if dberr.IsNotFound(err) {
				return ErrInvalidRefresh
			}
			return err
		}
		if !rt.Usable(s.now()) {
			return ErrInvalidRefresh
		}
		if err := tx.First(&user, rt.UserID).Error; err != nil {
			if dberr.IsNotFound(err) {
				return ErrInvalidRefresh
			}
			return err
		}
		res := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND revoked = ?", rt.ID, false).
			Update("revoked", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrInvalidRefresh
		}
		var err error
		fresh, err = s.issueRefresh(tx, user.ID)
		return err
	})
	if err != nil {
		return models.User{}, "", err
	}
	return user, fresh, nil
}

// Revoke marks a refresh token as revoked.
func (s *Service) Revoke(ctx context.Context, raw string) error {
	res := s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ?", auth.HashRefreshToken(raw)).
		Update("revoked", true)
	if res.Error != nil {
		return fmt.Errorf("revoke refresh token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// Prune deletes refresh tokens that are revoked or expired before now.
func (s *Service) Prune(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("revoked = ? OR expires_at < ?", true, now).
		Delete(&models.RefreshToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("prune refresh tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}
