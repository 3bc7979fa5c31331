package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matchtrack/matchtrack/internal/domain/user"
	"github.com/matchtrack/matchtrack/internal/platform/cache"
	"github.com/matchtrack/matchtrack/internal/platform/id"
	"github.com/matchtrack/matchtrack/internal/platform/logging"
	"github.com/matchtrack/matchtrack/internal/platform/token"
)

// IdentityProvider is the external credential store. It only ever sees the
// derived internal address, never the member's real email.
type IdentityProvider interface {
	// CreateUser registers credentials and returns the provider's user id.
	CreateUser(ctx context.Context, email, password string) (string, error)
	// VerifyCredentials returns the provider's user id on success and
	// user.ErrInvalidCredentials on a wrong username/password pair.
	VerifyCredentials(ctx context.Context, email, password string) (string, error)
}

// signupInviteConsumer consumes an invite code during signup, inserting the
// scoped profile inside the consume transaction.
type signupInviteConsumer interface {
	ConsumeForSignup(ctx context.Context, code string, profile user.Profile) (user.Profile, error)
}

type IdentityConfig struct {
	InternalDomain     string
	RefreshTokenTTL    time.Duration
	LoginFailureLimit  int64
	LoginFailureWindow time.Duration
}

type LoginInput struct {
	Username string
	Password string
	IP       string
}

type SignupInput struct {
	Username    string
	Password    string
	Email       string
	PhoneNumber string
	DisplayName string
	InviteCode  string
	IP          string
}

type UpdateProfileInput struct {
	DisplayName  *string
	Email        *string
	PhoneNumber  *string
	PlayerNumber *int
	Positions    []string
}

// TokenPair is what login/signup/refresh hand back to the client.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// IdentityService owns authentication: signup against the identity provider,
// login, stateless access-token verification and refresh rotation.
type IdentityService struct {
	idp          IdentityProvider
	users        user.Repository
	sessions     user.SessionRepository
	signer       *token.Signer
	ids          id.Generator
	store        *cache.Store
	invites      signupInviteConsumer
	cfg          IdentityConfig
	logger       *logging.Logger
	now          func() time.Time
	newSessionID func() string
}

type noopSignupInviteConsumer struct{}

func (noopSignupInviteConsumer) ConsumeForSignup(_ context.Context, _ string, _ user.Profile) (user.Profile, error) {
	return user.Profile{}, fmt.Errorf("%w: invite consumption is not configured", ErrTransient)
}

func NewIdentityService(
	idp IdentityProvider,
	users user.Repository,
	sessions user.SessionRepository,
	signer *token.Signer,
	ids id.Generator,
	store *cache.Store,
	cfg IdentityConfig,
	logger *logging.Logger,
) *IdentityService {
	if logger == nil {
		logger = logging.Default()
	}

	return &IdentityService{
		idp:          idp,
		users:        users,
		sessions:     sessions,
		signer:       signer,
		ids:          ids,
		store:        store,
		invites:      noopSignupInviteConsumer{},
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
		newSessionID: uuid.NewString,
	}
}

// SetInviteConsumer wires the invite service in after construction; the two
// services reference each other (signup consumes invites, invite issuance
// reads profiles) so one side is attached late.
func (s *IdentityService) SetInviteConsumer(consumer signupInviteConsumer) {
	if consumer != nil {
		s.invites = consumer
	}
}

// WithClock replaces the time source for tests.
func (s *IdentityService) WithClock(now func() time.Time) *IdentityService {
	s.now = now
	return s
}

// internalEmail derives the provider-side address from the username. The
// mapping is one-directional: nothing provider-side reveals the real email.
func (s *IdentityService) internalEmail(username string) string {
	return strings.ToLower(username) + "@" + s.cfg.InternalDomain
}

func hashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func loginLockKey(ip, username string) string {
	return cache.Key("loginlock", ip, strings.ToLower(username))
}

func (s *IdentityService) Login(ctx context.Context, input LoginInput) (TokenPair, user.Profile, error) {
	input.Username = strings.TrimSpace(input.Username)
	if err := user.ValidateUsername(input.Username); err != nil {
		// Do not reveal whether the username exists.
		return TokenPair{}, user.Profile{}, fmt.Errorf("%w: %w", ErrUnauthenticated, user.ErrInvalidCredentials)
	}
	if input.Password == "" {
		return TokenPair{}, user.Profile{}, fmt.Errorf("%w: %w", ErrUnauthenticated, user.ErrInvalidCredentials)
	}

	lockKey := loginLockKey(input.IP, input.Username)
	if _, locked := s.store.Get(ctx, lockKey); locked {
		return TokenPair{}, user.Profile{}, fmt.Errorf("%w: too many failed login attempts", ErrRateLimited)
	}

	idpUserID, err := s.idp.VerifyCredentials(ctx, s.internalEmail(input.Username), input.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			s.recordLoginFailure(ctx, input.IP, input.Username)
			return TokenPair{}, user.Profile{}, fmt.Errorf("%w: %w", ErrUnauthenticated, user.ErrInvalidCredentials)
		}
		return TokenPair{}, user.Profile{}, fmt.Errorf("%w: verify credentials: %v", ErrTransient, err)
	}

	profile, exists, err := s.users.GetByID(ctx, idpUserID)
	if err != nil {
		return TokenPair{}, user.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	if !exists {
		// Credentials verified but no platform profile; treat as bad login
		// rather than leaking provider state.
		s.logger.WarnContext(ctx, "login for credentials without a profile", "idp_user_id", idpUserID)
		return TokenPair{}, user.Profile{}, fmt.Errorf("%w: %w", ErrUnauthenticated, user.ErrInvalidCredentials)
	}

	pair, err := s.issueSession(ctx, profile)
	if err != nil {
		return TokenPair{}, user.Profile{}, err
	}

	s.logger.InfoContext(ctx, "login succeeded", "user_id", profile.ID, "role", profile.Role)
	return pair, profile, nil
}

func (s *IdentityService) recordLoginFailure(ctx context.Context, ip, username string) {
	if s.store == nil || s.cfg.LoginFailureLimit <= 0 {
		return
	}

	failKey := cache.Key("loginfail", ip, strings.ToLower(username))
	count, remaining := s.store.Increment(ctx, failKey, s.cfg.LoginFailureWindow)
	if count >= s.cfg.LoginFailureLimit {
		s.store.Set(ctx, loginLockKey(ip, username), true, remaining)
		s.logger.WarnContext(ctx, "login lock engaged",
			"ip", ip, "username", username, "failures", count)
	}
}

func (s *IdentityService) Signup(ctx context.Context, input SignupInput) (TokenPair, user.Profile, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	input.InviteCode = strings.TrimSpace(input.InviteCode)

	if err := user.ValidateUsername(input.Username); err != nil {
		return TokenPair{}, user.Profile{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if len(input.Password) < 8 {
		return TokenPair{}, user.Profile{}, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}

	if _, taken, err := s.users.GetByUsername(ctx, input.Username); err != nil {
		return TokenPair{}, user.Profile{}, fmt.Errorf("check username: %w", err)
	} else if taken {
		return TokenPair{}, user.Profile{}, fmt.Errorf("%w: username is taken", ErrConflict)
	}

	idpUserID, err := s.idp.CreateUser(ctx, s.internalEmail(input.Username), input.Password)
	if err != nil {
		return TokenPair{}, user.Profile{}, fmt.Errorf("%w: create credentials: %v", ErrTransient, err)
	}

	now := s.now().UTC()
	profile := user.Profile{
		ID:          idpUserID,
		Username:    input.Username,
		Email:       input.Email,
		PhoneNumber: strings.TrimSpace(input.PhoneNumber),
		DisplayName: strings.TrimSpace(input.DisplayName),
		Role:        user.RoleTeamFan,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if input.InviteCode != "" {
		profile, err = s.invites.ConsumeForSignup(ctx, input.InviteCode, profile)
		if err != nil {
			return TokenPair{}, user.Profile{}, err
		}
	} else {
		// No invite: an unscoped fan account, upgradeable later via invite.
		profile, err = s.users.Create(ctx, profile)
		if err != nil {
			return TokenPair{}, user.Profile{}, fmt.Errorf("create profile: %w", err)
		}
	}

	pair, err := s.issueSession(ctx, profile)
	if err != nil {
		return TokenPair{}, user.Profile{}, err
	}

	s.logger.InfoContext(ctx, "signup completed",
		"user_id", profile.ID, "role", profile.Role, "via_invite", input.InviteCode != "")
	return pair, profile, nil
}

// issueSession opens a fresh refresh-token family and mints the access token.
func (s *IdentityService) issueSession(ctx context.Context, profile user.Profile) (TokenPair, error) {
	refreshSecret, err := s.ids.NewSecret()
	if err != nil {
		return TokenPair{}, fmt.Errorf("generate refresh token: %w", err)
	}

	now := s.now().UTC()
	session := user.Session{
		ID:          s.newSessionID(),
		UserID:      profile.ID,
		FamilyID:    s.newSessionID(),
		RefreshHash: hashRefreshToken(refreshSecret),
		AccessJTI:   s.newSessionID(),
		ExpiresAt:   now.Add(s.cfg.RefreshTokenTTL),
		CreatedAt:   now,
	}

	accessToken, accessExpiry, err := s.signer.Mint(profile.ID, profile.Username, profile.Role.String(), session.ID, session.AccessJTI)
	if err != nil {
		return TokenPair{}, err
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return TokenPair{}, fmt.Errorf("create session: %w", err)
	}

	return TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiry,
		RefreshToken:     refreshSecret,
		RefreshExpiresAt: session.ExpiresAt,
	}, nil
}

// Refresh rotates a refresh token. Presenting an already-rotated token is
// treated as theft: the whole family is revoked.
func (s *IdentityService) Refresh(ctx context.Context, refreshToken string) (TokenPair, user.Profile, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return TokenPair{}, user.Profile{}, fmt.Errorf("%w: refresh token is required", ErrUnauthenticated)
	}

	session, exists, err := s.sessions.GetByRefreshHash(ctx, hashRefreshToken(refreshToken))
	if err != nil {
		return TokenPair{}, user.Profile{}, fmt.Errorf("get session: %w", err)
	}
	if !exists {
		return TokenPair{}, user.Profile{}, fmt.Errorf("%w: unknown refresh token", ErrUnauthenticated)
	}

	now := s.now().UTC()
	if session.RotatedAt != nil {
		if err := s.sessions.RevokeFamily(ctx, session.FamilyID); err != nil {
			s.logger.ErrorContext(ctx, "revoke session family after token reuse",
				"family_id", session.FamilyID, "error", err)
		}
		s.logger.WarnContext(ctx, "refresh token reuse detected, family revoked",
			"user_id", session.UserID, "family_id", session.FamilyID)
		return TokenPair{}, user.Profile{}, fmt.Errorf("%w: %v", ErrUnauthenticated, user.ErrSessionRevoked)
	}
	if !session.Usable(now) {
		return TokenPair{}, user.Profile{}, fmt.Errorf("%w: session expired or revoked", ErrUnauthenticated)
	}

	profile, exists, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return TokenPair{}, user.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	if !exists {
		return TokenPair{}, user.Profile{}, fmt.Errorf("%w: profile no longer exists", ErrUnauthenticated)
	}

	refreshSecret, err := s.ids.NewSecret()
	if err != nil {
		return TokenPair{}, user.Profile{}, fmt.Errorf("generate refresh token: %w", err)
	}

	next := user.Session{
		ID:          s.newSessionID(),
		UserID:      session.UserID,
		FamilyID:    session.FamilyID,
		RefreshHash: hashRefreshToken(refreshSecret),
		AccessJTI:   s.newSessionID(),
		ExpiresAt:   now.Add(s.cfg.RefreshTokenTTL),
		CreatedAt:   now,
	}

	accessToken, accessExpiry, err := s.signer.Mint(profile.ID, profile.Username, profile.Role.String(), next.ID, next.AccessJTI)
	if err != nil {
		return TokenPair{}, user.Profile{}, err
	}

	if err := s.sessions.Rotate(ctx, session.ID, next); err != nil {
		return TokenPair{}, user.Profile{}, fmt.Errorf("rotate session: %w", err)
	}

	return TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiry,
		RefreshToken:     refreshSecret,
		RefreshExpiresAt: next.ExpiresAt,
	}, profile, nil
}

// Logout revokes the presented token's whole family. Unknown tokens succeed;
// logout is idempotent.
func (s *IdentityService) Logout(ctx context.Context, refreshToken string) error {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil
	}

	session, exists, err := s.sessions.GetByRefreshHash(ctx, hashRefreshToken(refreshToken))
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	if !exists {
		return nil
	}

	if err := s.sessions.RevokeFamily(ctx, session.FamilyID); err != nil {
		return fmt.Errorf("revoke session family: %w", err)
	}

	s.logger.InfoContext(ctx, "logout", "user_id", session.UserID, "family_id", session.FamilyID)
	return nil
}

// LogoutAccess revokes the session family named by an access token's sid
// claim. The token must verify; a valid token whose session is already gone
// succeeds, matching Logout's idempotency.
func (s *IdentityService) LogoutAccess(ctx context.Context, accessToken string) error {
	claims, err := s.signer.Verify(accessToken)
	if err != nil {
		return fmt.Errorf("%w: invalid access token", ErrUnauthenticated)
	}

	session, exists, err := s.sessions.GetByID(ctx, claims.SessionID)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	if !exists {
		return nil
	}

	if err := s.sessions.RevokeFamily(ctx, session.FamilyID); err != nil {
		return fmt.Errorf("revoke session family: %w", err)
	}

	s.logger.InfoContext(ctx, "logout", "user_id", session.UserID, "family_id", session.FamilyID)
	return nil
}

// Verify checks an access token statelessly: signature and expiry only, no
// store round trip. Revocation takes effect at the access-token horizon.
func (s *IdentityService) Verify(_ context.Context, accessToken string) (user.Principal, error) {
	claims, err := s.signer.Verify(accessToken)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return user.Principal{}, fmt.Errorf("%w: access token expired", ErrUnauthenticated)
		}
		return user.Principal{}, fmt.Errorf("%w: invalid access token", ErrUnauthenticated)
	}

	role, err := user.ParseRole(claims.Role)
	if err != nil {
		return user.Principal{}, fmt.Errorf("%w: invalid access token", ErrUnauthenticated)
	}

	return user.Principal{
		UserID:    claims.Subject,
		Username:  claims.Username,
		Role:      role,
		SessionID: claims.SessionID,
	}, nil
}

func (s *IdentityService) GetProfile(ctx context.Context, userID string) (user.Profile, error) {
	profile, exists, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return user.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	if !exists {
		return user.Profile{}, fmt.Errorf("%w: profile not found", ErrNotFound)
	}
	return profile, nil
}

// UpdateProfile lets a member edit contact fields and player details. Role
// and scope are invite-driven and never editable here.
func (s *IdentityService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (user.Profile, error) {
	profile, exists, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return user.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	if !exists {
		return user.Profile{}, fmt.Errorf("%w: profile not found", ErrNotFound)
	}

	if input.DisplayName != nil {
		profile.DisplayName = strings.TrimSpace(*input.DisplayName)
	}
	if input.Email != nil {
		profile.Email = strings.TrimSpace(*input.Email)
	}
	if input.PhoneNumber != nil {
		profile.PhoneNumber = strings.TrimSpace(*input.PhoneNumber)
	}
	if input.PlayerNumber != nil {
		if *input.PlayerNumber < 0 || *input.PlayerNumber > 99 {
			return user.Profile{}, fmt.Errorf("%w: player number must be 0-99", ErrInvalidInput)
		}
		profile.PlayerNumber = input.PlayerNumber
	}
	if input.Positions != nil {
		profile.Positions = input.Positions
	}
	profile.UpdatedAt = s.now().UTC()

	updated, err := s.users.Update(ctx, profile)
	if err != nil {
		return user.Profile{}, fmt.Errorf("update profile: %w", err)
	}
	return updated, nil
}
