package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/hotelpms/hotel-backend/internal/database"
	"github.com/hotelpms/hotel-backend/internal/models"
	"github.com/hotelpms/hotel-backend/internal/utils"
	"github.com/hotelpms/hotel-backend/pkg/jwt"
	"github.com/hotelpms/hotel-backend/pkg/validator"
)

// RegisterInput is a sign-up request
type RegisterInput struct {
	Username string
	Password string
	Email    string
	Name     string
	Phone    string
}

// ProfileInput carries the editable profile fields
type ProfileInput struct {
	Name  string
	Email string
	Phone string
}

// TokenPair is returned on login and refresh
type TokenPair struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	User         *models.User `json:"user"`
}

// AuthService handles account and authentication business logic
type AuthService struct {
	users         UserStore
	tokens        RefreshTokenStore
	jwtService    *jwt.Service
	phone         *validator.PhoneValidator
	bcryptCost    int
	refreshExpiry time.Duration
	deletionGrace time.Duration
	logger        *logrus.Logger
	now           func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(
	users UserStore,
	tokens RefreshTokenStore,
	jwtService *jwt.Service,
	bcryptCost int,
	refreshExpiry time.Duration,
	deletionGrace time.Duration,
	logger *logrus.Logger,
) *AuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		users:         users,
		tokens:        tokens,
		jwtService:    jwtService,
		phone:         validator.NewPhoneValidator(),
		bcryptCost:    bcryptCost,
		refreshExpiry: refreshExpiry,
		deletionGrace: deletionGrace,
		logger:        logger,
		now:           time.Now,
	}
}

// Register creates an enabled USER account
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if err := validator.ValidateUsername(in.Username); err != nil {
		return nil, invalid(err)
	}
	if err := validator.ValidatePassword(in.Password); err != nil {
		return nil, invalid(err)
	}
	phone, err := s.validateProfile(ProfileInput{Name: in.Name, Email: in.Email, Phone: in.Phone})
	if err != nil {
		return nil, err
	}

	taken, err := s.users.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		return nil, ErrUsernameTaken
	}
	taken, err = s.users.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     in.Username,
		PasswordHash: string(hash),
		Email:        in.Email,
		Name:         strings.TrimSpace(in.Name),
		Phone:        models.NewNullString(phone),
		Roles:        []string{models.RoleUser},
		Enabled:      true,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			// lost a race with another sign-up; report whichever field collided
			if taken, _ := s.users.ExistsByUsername(ctx, in.Username); taken {
				return nil, ErrUsernameTaken
			}
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("User registered")

	return user, nil
}

// Login checks credentials and issues a token pair.
//
// A withdrawn account inside its grace period gets ErrAccountDeleted so the
// client can offer a restore; after the grace period it no longer exists as
// far as login is concerned.
func (s *AuthService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil || !checkPassword(user, password) {
		return nil, ErrInvalidCredentials
	}

	if user.IsWithdrawn() {
		if s.now().Before(user.PurgeAt(s.deletionGrace)) {
			return nil, ErrAccountDeleted
		}
		return nil, ErrInvalidCredentials
	}
	if !user.Enabled {
		return nil, ErrAccountDisabled
	}

	pair, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Warn("Failed to update last login")
	}

	s.logger.WithField("user_id", user.ID).Info("User logged in")
	return pair, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is revoked.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	stored, err := s.tokens.Get(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to load refresh token: %w", err)
	}
	if stored == nil || !stored.IsUsable(s.now()) || stored.UserID != claims.UserID {
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil || user.IsWithdrawn() {
		return nil, ErrInvalidToken
	}
	if !user.Enabled {
		return nil, ErrAccountDisabled
	}

	if err := s.tokens.Revoke(ctx, refreshToken); err != nil {
		if isRepoNotFound(err) {
			// revoked concurrently by another refresh
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	return s.issue(ctx, user)
}

// Logout revokes refreshToken, or the user's most recent token when it is empty
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID, refreshToken string) error {
	if refreshToken == "" {
		if err := s.tokens.RevokeMostRecent(ctx, userID); err != nil && !isRepoNotFound(err) {
			return err
		}
		return nil
	}

	stored, err := s.tokens.Get(ctx, refreshToken)
	if err != nil {
		return fmt.Errorf("failed to load refresh token: %w", err)
	}
	if stored == nil || stored.UserID != userID {
		return ErrInvalidToken
	}
	if err := s.tokens.Revoke(ctx, refreshToken); err != nil && !isRepoNotFound(err) {
		return err
	}

	s.logger.WithField("user_id", userID).Info("User logged out")
	return nil
}

// IsUsernameAvailable reports whether username can be registered
func (s *AuthService) IsUsernameAvailable(ctx context.Context, username string) (bool, error) {
	taken, err := s.users.ExistsByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return false, err
	}
	return !taken, nil
}

// IsEmailAvailable reports whether email can be registered
func (s *AuthService) IsEmailAvailable(ctx context.Context, email string) (bool, error) {
	taken, err := s.users.ExistsByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return false, err
	}
	return !taken, nil
}

// GetProfile returns the account of userID
func (s *AuthService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, notFound("user", userID)
	}
	return user, nil
}

// UpdateProfile changes name, email and phone
func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, in ProfileInput) (*models.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	phone, err := s.validateProfile(in)
	if err != nil {
		return nil, err
	}

	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(user.Email, in.Email) {
		taken, err := s.users.ExistsByEmail(ctx, in.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
		if taken {
			return nil, ErrEmailTaken
		}
	}

	user.Name = strings.TrimSpace(in.Name)
	user.Email = in.Email
	user.Phone = models.NewNullString(phone)

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		switch {
		case errors.Is(err, database.ErrDuplicate):
			return nil, ErrEmailTaken
		case isRepoNotFound(err):
			return nil, notFound("user", userID)
		}
		return nil, err
	}
	return user, nil
}

// ChangePassword replaces the password after checking the current one.
// Every refresh token of the user is revoked.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, current, next, confirm string) error {
	if next != confirm {
		return ErrPasswordMismatch
	}
	if err := validator.ValidatePassword(next); err != nil {
		return invalid(err)
	}

	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if !checkPassword(user, current) {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}

	s.revokeAll(ctx, userID)
	s.logger.WithField("user_id", userID).Info("Password changed")
	return nil
}

// Withdraw disables the account and schedules it for purge after the grace period
func (s *AuthService) Withdraw(ctx context.Context, userID uuid.UUID, password string) error {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if !checkPassword(user, password) {
		return ErrInvalidCredentials
	}

	now := s.now()
	if err := s.users.SoftDelete(ctx, userID, now); err != nil {
		if isRepoNotFound(err) {
			return ErrAccountDeleted
		}
		return err
	}
	s.revokeAll(ctx, userID)

	s.logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"purge_at": now.Add(s.deletionGrace),
	}).Info("User withdrew account")
	return nil
}

// Restore re-enables a withdrawn account that is still inside its grace period
func (s *AuthService) Restore(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil || !checkPassword(user, password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsWithdrawn() {
		return nil, invalid(errors.New("account is not scheduled for deletion"))
	}
	if !s.now().Before(user.PurgeAt(s.deletionGrace)) {
		return nil, ErrInvalidCredentials
	}

	if err := s.users.Restore(ctx, user.ID); err != nil {
		return nil, err
	}
	user.Enabled = true
	user.DeletedAt = models.NullTime{}

	s.logger.WithField("user_id", user.ID).Info("User restored account")
	return user, nil
}

// issue creates and records a new token pair for user
func (s *AuthService) issue(ctx context.Context, user *models.User) (*TokenPair, error) {
	accessToken, err := s.jwtService.GenerateAccessToken(user.ID, user.Username, []string(user.Roles))
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, err := s.jwtService.GenerateRefreshToken(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	client := ClientInfoFrom(ctx)
	device := utils.ParseUserAgent(client.UserAgent)
	expiresAt := s.now().Add(s.refreshExpiry)
	if err := s.tokens.Store(ctx, user.ID, refreshToken, device, client.IP, client.UserAgent, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.jwtService.AccessTokenExpiry().Seconds()),
		User:         user,
	}, nil
}

func (s *AuthService) revokeAll(ctx context.Context, userID uuid.UUID) {
	n, err := s.tokens.RevokeAllForUser(ctx, userID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Failed to revoke refresh tokens")
		return
	}
	s.logger.WithFields(logrus.Fields{"user_id": userID, "revoked": n}).Debug("Refresh tokens revoked")
}

// validateProfile checks name, email and the optional phone and returns the
// phone in digits-only form
func (s *AuthService) validateProfile(in ProfileInput) (string, error) {
	if err := validator.ValidateName(in.Name); err != nil {
		return "", invalid(err)
	}
	if err := validator.ValidateEmail(in.Email); err != nil {
		return "", invalid(err)
	}
	if strings.TrimSpace(in.Phone) == "" {
		return "", nil
	}
	phone, err := s.phone.Validate(in.Phone)
	if err != nil {
		return "", invalid(err)
	}
	return phone, nil
}

func checkPassword(user *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}
