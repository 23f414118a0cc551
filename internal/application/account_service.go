package application

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-weather-digest/config"
	"github.com/oksasatya/go-weather-digest/internal/domain/entity"
	repo "github.com/oksasatya/go-weather-digest/internal/domain/repository"
	"github.com/oksasatya/go-weather-digest/pkg/helpers"
	"github.com/oksasatya/go-weather-digest/pkg/mailer"
	tpl "github.com/oksasatya/go-weather-digest/pkg/mailer/templates"
)

// AccountService covers registration, login sessions, and email confirmation.
type AccountService struct {
	Users  repo.UserRepository
	JWT    *helpers.JWTManager
	Redis  *redis.Client
	Mailer mailer.Sender
	Cfg    *config.Config
	Logger *logrus.Logger
	Clock  clockwork.Clock
}

type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

func NewAccountService(users repo.UserRepository, jwt *helpers.JWTManager, rdb *redis.Client, m mailer.Sender, cfg *config.Config, logger *logrus.Logger, clock clockwork.Clock) *AccountService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &AccountService{Users: users, JWT: jwt, Redis: rdb, Mailer: m, Cfg: cfg, Logger: logger, Clock: clock}
}

func (s *AccountService) sessionTTL() time.Duration {
	if s.Cfg != nil && s.Cfg.SessionTTL > 0 {
		return s.Cfg.SessionTTL
	}
	return 24 * time.Hour
}

func (s *AccountService) nowRFC3339() string {
	return s.Clock.Now().UTC().Format(time.RFC3339Nano)
}

// Register creates an unconfirmed account and mails the confirmation link.
// A failed confirmation mail does not fail registration; the user can resend.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &entity.User{
		Username:     strings.TrimSpace(in.Username),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: hash,
	}
	if err := s.Users.Create(ctx, u); err != nil {
		var dup *repo.DuplicateUserError
		if errors.As(err, &dup) {
			if dup.Field == repo.DuplicateUsername {
				return nil, ErrUsernameTaken
			}
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.SendConfirmation(ctx, u); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("confirmation email not sent")
	}
	return u, nil
}

// SendConfirmation mails a fresh confirmation token to u.
func (s *AccountService) SendConfirmation(ctx context.Context, u *entity.User) error {
	token, err := s.JWT.GenerateConfirmationToken(u.Email)
	if err != nil {
		return fmt.Errorf("generate confirmation token: %w", err)
	}
	if s.Mailer == nil {
		return nil
	}
	data := tpl.NewConfirmEmailData(s.Cfg, u.Username, u.Email, s.confirmURL(token), s.Clock.Now().Add(s.JWT.ConfirmTTL),
		tpl.WithTime(s.Clock.Now()))
	subject, text, html, err := tpl.Render(tpl.ConfirmEmail, data)
	if err != nil {
		return fmt.Errorf("render confirmation email: %w", err)
	}
	if err := s.Mailer.Send(mailer.WithKind(ctx, tpl.ConfirmEmail), u.Email, subject, text, html); err != nil {
		return fmt.Errorf("send confirmation email: %w", err)
	}
	return nil
}

func (s *AccountService) confirmURL(token string) string {
	base := "http://localhost:8080/api/confirm"
	if s.Cfg != nil && s.Cfg.ConfirmEmailURL != "" {
		base = s.Cfg.ConfirmEmailURL
	}
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(token)
}

// ResendConfirmation re-sends the link unless the account is already confirmed.
func (s *AccountService) ResendConfirmation(ctx context.Context, userID int64) error {
	u, err := s.Profile(ctx, userID)
	if err != nil {
		return err
	}
	if u.EmailConfirmed {
		return ErrAlreadyConfirmed
	}
	return s.SendConfirmation(ctx, u)
}

// ConfirmEmail validates token and confirms the matching account once.
func (s *AccountService) ConfirmEmail(ctx context.Context, token string) (*entity.User, error) {
	email, err := s.JWT.ParseConfirmationToken(token)
	if err != nil {
		return nil, ErrInvalidOrExpiredToken
	}
	u, err := s.Users.GetByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrInvalidOrExpiredToken
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	if u.EmailConfirmed {
		return u, ErrAlreadyConfirmed
	}

	now := s.Clock.Now().UTC()
	changed, err := s.Users.MarkEmailConfirmed(ctx, u.ID, now)
	if err != nil {
		return nil, fmt.Errorf("mark email confirmed: %w", err)
	}
	if !changed {
		// lost a race with a concurrent confirmation
		return u, ErrAlreadyConfirmed
	}
	u.EmailConfirmed = true
	u.EmailConfirmedOn = &now
	if s.Logger != nil {
		s.Logger.WithField("user_id", u.ID).Info("email confirmed")
	}
	return u, nil
}

// Authenticate checks username and password. Unknown users and wrong
// passwords both yield ErrInvalidCredentials.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*entity.User, error) {
	u, err := s.Users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) && s.Logger != nil {
			s.Logger.WithError(err).Error("lookup user for login failed")
		}
		helpers.CompareDummy(password)
		return nil, ErrInvalidCredentials
	}
	if !helpers.CompareHashAndPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// IssueTokens generates access/refresh tokens and records a session in Redis.
func (s *AccountService) IssueTokens(ctx context.Context, u *entity.User) (TokenPair, error) {
	sid := uuid.NewString()
	pair, err := s.tokens(u.ID, sid)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate tokens failed")
		}
		return TokenPair{}, err
	}

	if s.Redis != nil {
		fields := map[string]any{
			"user_id":    u.ID,
			"username":   u.Username,
			"email":      u.Email,
			"sid":        sid,
			"logged_in":  true,
			"created_at": s.nowRFC3339(),
		}
		key := helpers.SessionKey(u.ID)
		pipe := s.Redis.Pipeline()
		pipe.HSet(ctx, key, fields)
		pipe.Expire(ctx, key, s.sessionTTL())
		if _, rErr := pipe.Exec(ctx); rErr != nil && s.Logger != nil {
			s.Logger.WithError(rErr).WithField("key", key).Warn("redis pipeline failed")
		}
	}
	return pair, nil
}

func (s *AccountService) tokens(userID int64, sid string) (TokenPair, error) {
	access, aexp, err := s.JWT.GenerateAccessToken(userID, sid)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(userID, sid)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}

func (s *AccountService) Login(ctx context.Context, username, password string) (*entity.User, TokenPair, error) {
	u, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, TokenPair{}, err
	}
	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return u, pair, nil
}

// Refresh validates the refresh token against the stored session and rotates both tokens.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (TokenPair, int64, error) {
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, 0, ErrInvalidCredentials
	}
	u, err := s.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		return TokenPair{}, 0, ErrInvalidCredentials
	}
	key := helpers.SessionKey(u.ID)
	if s.Redis != nil {
		data, rErr := s.Redis.HGetAll(ctx, key).Result()
		if rErr != nil || len(data) == 0 || data["sid"] != claims.SessionID {
			return TokenPair{}, 0, ErrInvalidCredentials
		}
	}

	sid := uuid.NewString()
	pair, err := s.tokens(u.ID, sid)
	if err != nil {
		return TokenPair{}, 0, err
	}
	if s.Redis != nil {
		pipe := s.Redis.Pipeline()
		pipe.HSet(ctx, key, map[string]any{
			"sid":        sid,
			"updated_at": s.nowRFC3339(),
		})
		pipe.Expire(ctx, key, s.sessionTTL())
		// the old sid stays valid when the rotation is not stored
		if _, rErr := pipe.Exec(ctx); rErr != nil {
			if s.Logger != nil {
				s.Logger.WithError(rErr).WithField("key", key).Error("rotate session failed")
			}
			return TokenPair{}, 0, fmt.Errorf("rotate session: %w", rErr)
		}
	}
	return pair, u.ID, nil
}

// Logout drops the session so outstanding tokens stop working.
func (s *AccountService) Logout(ctx context.Context, userID int64) error {
	if s.Redis == nil {
		return nil
	}
	return helpers.RedisDel(ctx, s.Redis, helpers.SessionKey(userID))
}

func (s *AccountService) Profile(ctx context.Context, userID int64) (*entity.User, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *AccountService) UpdatePassword(ctx context.Context, userID int64, password string) error {
	hash, err := helpers.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.Users.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}
