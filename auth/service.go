// Package auth orchestrates the account lifecycle: login, token refresh,
// logout, password reset and request authentication. It owns no storage or
// crypto of its own; everything is delegated to the injected components.
package auth

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jrsteele09/ziris-auth/audit"
	"github.com/jrsteele09/ziris-auth/credentials"
	apperrors "github.com/jrsteele09/ziris-auth/internal/errors"
	"github.com/jrsteele09/ziris-auth/ratelimit"
	"github.com/jrsteele09/ziris-auth/reset"
	"github.com/jrsteele09/ziris-auth/session"
	"github.com/jrsteele09/ziris-auth/token"
	"github.com/jrsteele09/ziris-auth/users"
)

// Rate limit keys are prefixed per concern so one flow cannot exhaust
// another's budget for the same client.
const (
	loginIPKeyPrefix   = "login:"
	loginUserKeyPrefix = "login-user:"
	registerKeyPrefix  = "register:"
)

const defaultAccessTokenTTL = 120 * time.Minute

// Limits holds the rate limiting policy for the auth flows.
type Limits struct {
	LoginMaxHits    int
	LoginWindow     time.Duration
	RegisterMaxHits int
	RegisterWindow  time.Duration
}

// DefaultLimits mirrors the production policy.
func DefaultLimits() Limits {
	return Limits{
		LoginMaxHits:    10,
		LoginWindow:     time.Minute,
		RegisterMaxHits: 5,
		RegisterWindow:  time.Minute,
	}
}

// Repos holds all repository dependencies for the Service.
type Repos struct {
	Users    users.Repo       // Repository for user accounts
	Sessions *session.Manager // Refresh token lifecycle
	Resets   *reset.Store     // Single-use password reset tokens
}

// Identity is the authenticated caller attached to a request.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// LoginResult carries everything a successful login hands back to the client.
type LoginResult struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresAt    time.Time  `json:"expires_at"`
	User         users.User `json:"user"`
}

// Service provides the account lifecycle operations.
type Service struct {
	repos          Repos
	codec          *token.Codec
	hasher         *credentials.Hasher
	limiter        *ratelimit.Limiter
	sink           audit.Sink
	log            zerolog.Logger
	limits         Limits
	accessTokenTTL time.Duration
	nowTime        func() time.Time
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithAccessTokenTTL overrides the default access token lifetime.
func WithAccessTokenTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.accessTokenTTL = ttl
		}
	}
}

// WithLimits overrides the default rate limiting policy.
func WithLimits(limits Limits) ServiceOption {
	return func(s *Service) {
		s.limits = limits
	}
}

// NewService initializes a Service with required dependencies.
// Optional configuration can be provided via options (e.g., WithNowTime for testing).
func NewService(
	repos Repos,
	codec *token.Codec,
	hasher *credentials.Hasher,
	limiter *ratelimit.Limiter,
	sink audit.Sink,
	log zerolog.Logger,
	options ...ServiceOption,
) (*Service, error) {
	if repos.Users == nil {
		return nil, apperrors.Wrapf(apperrors.ErrInternal, "[NewService] Users repo is required")
	}
	if repos.Sessions == nil {
		return nil, apperrors.Wrapf(apperrors.ErrInternal, "[NewService] Sessions manager is required")
	}
	if repos.Resets == nil {
		return nil, apperrors.Wrapf(apperrors.ErrInternal, "[NewService] Resets store is required")
	}
	if codec == nil {
		return nil, apperrors.Wrapf(apperrors.ErrInternal, "[NewService] token codec is required")
	}
	if hasher == nil {
		return nil, apperrors.Wrapf(apperrors.ErrInternal, "[NewService] hasher is required")
	}
	if limiter == nil {
		return nil, apperrors.Wrapf(apperrors.ErrInternal, "[NewService] rate limiter is required")
	}
	if sink == nil {
		return nil, apperrors.Wrapf(apperrors.ErrInternal, "[NewService] audit sink is required")
	}

	service := &Service{
		repos:          repos,
		codec:          codec,
		hasher:         hasher,
		limiter:        limiter,
		sink:           sink,
		log:            log,
		limits:         DefaultLimits(),
		accessTokenTTL: defaultAccessTokenTTL,
		nowTime:        time.Now,
	}

	for _, opt := range options {
		opt(service)
	}

	return service, nil
}

// Login verifies credentials and opens a session. Failures are deliberately
// indistinguishable: an unknown username and a wrong password both return
// ErrInvalidCredentials, so callers cannot probe which accounts exist.
func (s *Service) Login(ctx context.Context, username, password, remoteIP string) (*LoginResult, error) {
	if err := s.limiter.Admit(loginIPKeyPrefix+remoteIP, s.limits.LoginMaxHits, s.limits.LoginWindow); err != nil {
		return nil, apperrors.Wrapf(err, "[Service.Login] ip %s", remoteIP)
	}
	if err := s.limiter.Admit(loginUserKeyPrefix+username, s.limits.LoginMaxHits, s.limits.LoginWindow); err != nil {
		return nil, apperrors.Wrapf(err, "[Service.Login] user throttled")
	}

	user, err := s.repos.Users.GetByUsername(ctx, username)
	if err != nil {
		s.recordAudit(ctx, audit.Entry{Action: audit.ActionLoginFailed, Username: username, RemoteIP: remoteIP, Detail: "unknown user"})
		return nil, apperrors.ErrInvalidCredentials
	}

	matched, shouldUpgrade := s.hasher.Verify(password, user.PasswordHash)
	if !matched {
		s.recordAudit(ctx, audit.Entry{Action: audit.ActionLoginFailed, UserID: user.ID, Username: username, RemoteIP: remoteIP, Detail: "bad password"})
		return nil, apperrors.ErrInvalidCredentials
	}

	if !user.IsActive {
		s.recordAudit(ctx, audit.Entry{Action: audit.ActionLoginFailed, UserID: user.ID, Username: username, RemoteIP: remoteIP, Detail: "account inactive"})
		return nil, apperrors.ErrAccountInactive
	}

	if shouldUpgrade {
		s.upgradePasswordHash(ctx, user, password)
	}

	result, err := s.openSession(user)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[Service.Login] opening session")
	}

	if err := s.repos.Users.SetLastLogin(ctx, user.ID, s.nowTime().UTC()); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("recording last login failed")
	}

	s.recordAudit(ctx, audit.Entry{Action: audit.ActionLogin, UserID: user.ID, Username: username, RemoteIP: remoteIP})
	return result, nil
}

// Refresh rotates a refresh token and issues a fresh access token. A replayed
// or revoked token fails, and the failure is audited since it usually means
// the token leaked.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	newToken, _, err := s.repos.Sessions.Rotate(refreshToken)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrInvalidToken) {
			s.recordAudit(ctx, audit.Entry{Action: audit.ActionReplayRefused, Detail: "refresh token rejected"})
		}
		return nil, apperrors.Wrapf(err, "[Service.Refresh] rotating token")
	}

	ownerID, err := s.repos.Sessions.Owner(newToken)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[Service.Refresh] resolving owner")
	}

	user, err := s.repos.Users.GetByID(ctx, ownerID)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "[Service.Refresh] owner no longer exists")
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountInactive
	}

	accessToken, expiresAt, err := s.issueAccessToken(user)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[Service.Refresh] issuing access token")
	}

	s.recordAudit(ctx, audit.Entry{Action: audit.ActionRefresh, UserID: user.ID, Username: user.Username})

	user.PasswordHash = ""
	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: newToken,
		ExpiresAt:    expiresAt,
		User:         *user,
	}, nil
}

// Logout revokes a refresh token. Revoking an unknown or already revoked
// token is a no-op so logout is always safe to retry.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	ownerID, _ := s.repos.Sessions.Owner(refreshToken) //nolint:errcheck // best effort, for the audit trail only

	if err := s.repos.Sessions.Revoke(refreshToken); err != nil {
		return apperrors.Wrapf(err, "[Service.Logout] revoking token")
	}

	s.recordAudit(ctx, audit.Entry{Action: audit.ActionLogout, UserID: ownerID})
	return nil
}

// ResetRequest issues a password reset token for the account. The returned
// token would normally be delivered out of band; unknown usernames produce no
// token but also no error, so the response never reveals account existence.
func (s *Service) ResetRequest(ctx context.Context, username string) (string, error) {
	user, err := s.repos.Users.GetByUsername(ctx, username)
	if err != nil {
		return "", nil
	}

	resetToken, err := s.repos.Resets.Request(user.ID)
	if err != nil {
		return "", apperrors.Wrapf(err, "[Service.ResetRequest] issuing token")
	}

	s.recordAudit(ctx, audit.Entry{Action: audit.ActionResetRequest, UserID: user.ID, Username: username})
	return resetToken, nil
}

// ResetConfirm redeems a reset token, installs the new password and revokes
// every open session for the account.
func (s *Service) ResetConfirm(ctx context.Context, resetToken, newPassword string) error {
	ownerID, err := s.repos.Resets.Confirm(resetToken)
	if err != nil {
		return apperrors.Wrapf(err, "[Service.ResetConfirm] redeeming token")
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperrors.Wrapf(err, "[Service.ResetConfirm] hashing password")
	}

	if err := s.repos.Users.UpdatePasswordHash(ctx, ownerID, passwordHash); err != nil {
		return apperrors.Wrapf(err, "[Service.ResetConfirm] updating password")
	}

	if err := s.repos.Sessions.RevokeAll(ownerID); err != nil {
		return apperrors.Wrapf(err, "[Service.ResetConfirm] revoking sessions")
	}

	s.recordAudit(ctx, audit.Entry{Action: audit.ActionResetConfirm, UserID: ownerID})
	return nil
}

// Register creates an inactive account pending admin approval.
func (s *Service) Register(ctx context.Context, username, password, remoteIP string) (*users.User, error) {
	if err := s.limiter.Admit(registerKeyPrefix+remoteIP, s.limits.RegisterMaxHits, s.limits.RegisterWindow); err != nil {
		return nil, apperrors.Wrapf(err, "[Service.Register] ip %s", remoteIP)
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[Service.Register] hashing password")
	}

	user := &users.User{
		Username:     username,
		PasswordHash: passwordHash,
		Role:         users.RoleUser,
		IsActive:     false,
	}
	if err := s.repos.Users.Upsert(ctx, user); err != nil {
		return nil, apperrors.Wrapf(err, "[Service.Register] creating user")
	}

	s.recordAudit(ctx, audit.Entry{Action: audit.ActionRegister, UserID: user.ID, Username: username, RemoteIP: remoteIP})

	created := *user
	created.PasswordHash = ""
	return &created, nil
}

// Approve activates a pending account.
func (s *Service) Approve(ctx context.Context, userID, approvedBy string) error {
	if err := s.repos.Users.SetActive(ctx, userID, true); err != nil {
		return apperrors.Wrapf(err, "[Service.Approve] activating user")
	}
	s.recordAudit(ctx, audit.Entry{Action: audit.ActionApprove, UserID: userID, Detail: "approved by " + approvedBy})
	return nil
}

// Authenticate resolves a bearer token to the identity it represents. Tokens
// for deactivated or deleted accounts are rejected even when the signature is
// still valid.
func (s *Service) Authenticate(ctx context.Context, bearer string) (*Identity, error) {
	if username, ok := s.codec.DecodeLegacy(bearer); ok {
		user, err := s.repos.Users.GetByUsername(ctx, username)
		if err != nil {
			return nil, apperrors.ErrInvalidToken
		}
		return s.identityFor(user)
	}

	claims, err := s.codec.Verify(bearer)
	if err != nil {
		return nil, err
	}

	user, err := s.repos.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}
	return s.identityFor(user)
}

func (s *Service) identityFor(user *users.User) (*Identity, error) {
	if !user.IsActive {
		return nil, apperrors.ErrAccountInactive
	}
	return &Identity{
		ID:       user.ID,
		Username: user.Username,
		Role:     string(user.Role),
	}, nil
}

func (s *Service) openSession(user *users.User) (*LoginResult, error) {
	accessToken, expiresAt, err := s.issueAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken, _, err := s.repos.Sessions.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	sanitized := *user
	sanitized.PasswordHash = ""
	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		User:         sanitized,
	}, nil
}

func (s *Service) issueAccessToken(user *users.User) (string, time.Time, error) {
	expiresAt := s.nowTime().Add(s.accessTokenTTL)
	accessToken, err := s.codec.Issue(token.AccessClaims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     string(user.Role),
	}, s.accessTokenTTL)
	if err != nil {
		return "", time.Time{}, err
	}
	return accessToken, expiresAt, nil
}

// upgradePasswordHash re-hashes a password that matched under the legacy
// scheme. An upgrade failure is logged but never fails the login.
func (s *Service) upgradePasswordHash(ctx context.Context, user *users.User, password string) {
	newHash, err := s.hasher.Hash(password)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("password hash upgrade failed")
		return
	}
	if err := s.repos.Users.UpdatePasswordHash(ctx, user.ID, newHash); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("persisting upgraded password hash failed")
		return
	}
	user.PasswordHash = newHash
	s.log.Info().Str("user_id", user.ID).Msg("password hash upgraded to current scheme")
}

func (s *Service) recordAudit(ctx context.Context, entry audit.Entry) {
	if err := s.sink.Record(ctx, entry); err != nil {
		s.log.Warn().Err(err).Str("action", entry.Action).Msg("audit record failed")
	}
}
