package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/matchtrack/matchtrack/internal/domain/user"
	"github.com/matchtrack/matchtrack/internal/infrastructure/repository/memory"
	"github.com/matchtrack/matchtrack/internal/platform/cache"
	"github.com/matchtrack/matchtrack/internal/platform/logging"
	"github.com/matchtrack/matchtrack/internal/platform/token"
	"github.com/matchtrack/matchtrack/internal/usecase"
)

// fakeIdentityProvider keeps credentials in memory and only ever sees the
// derived internal addresses, like the real provider.
type fakeIdentityProvider struct {
	mu        sync.Mutex
	nextID    int
	passwords map[string]string
	userIDs   map[string]string
	seenMails []string
}

func newFakeIdentityProvider() *fakeIdentityProvider {
	return &fakeIdentityProvider{
		passwords: make(map[string]string),
		userIDs:   make(map[string]string),
	}
}

func (f *fakeIdentityProvider) CreateUser(_ context.Context, email, password string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.userIDs[email]; exists {
		return "", fmt.Errorf("email already registered")
	}
	f.nextID++
	id := fmt.Sprintf("idp-%d", f.nextID)
	f.userIDs[email] = id
	f.passwords[email] = password
	f.seenMails = append(f.seenMails, email)
	return id, nil
}

func (f *fakeIdentityProvider) VerifyCredentials(_ context.Context, email, password string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, exists := f.passwords[email]
	if !exists || stored != password {
		return "", user.ErrInvalidCredentials
	}
	return f.userIDs[email], nil
}

type identityFixture struct {
	service  *usecase.IdentityService
	idp      *fakeIdentityProvider
	users    *memory.UserRepository
	sessions *memory.SessionRepository
	store    *cache.Store
}

func newIdentityFixture(t *testing.T) *identityFixture {
	t.Helper()

	idp := newFakeIdentityProvider()
	users := memory.NewUserRepository()
	sessions := memory.NewSessionRepository()
	store := cache.NewStore(time.Minute)

	signer, err := token.NewSigner("0123456789abcdef0123456789abcdef", "matchtrack", 15*time.Minute)
	if err != nil {
		t.Fatalf("build signer: %v", err)
	}

	service := usecase.NewIdentityService(
		idp, users, sessions, signer, &seqIDGenerator{}, store,
		usecase.IdentityConfig{
			InternalDomain:     "members.matchtrack.internal",
			RefreshTokenTTL:    30 * 24 * time.Hour,
			LoginFailureLimit:  3,
			LoginFailureWindow: time.Minute,
		},
		logging.NewNop(),
	)

	return &identityFixture{service: service, idp: idp, users: users, sessions: sessions, store: store}
}

func TestIdentityService_Signup_WithoutInvite(t *testing.T) {
	f := newIdentityFixture(t)

	pair, profile, err := f.service.Signup(t.Context(), usecase.SignupInput{
		Username: "sam_keeper",
		Password: "correct horse",
		Email:    "sam@example.com",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if profile.Role != user.RoleTeamFan {
		t.Fatalf("uninvited signup must land as team_fan, got %s", profile.Role)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected a token pair, got %+v", pair)
	}

	// The provider never sees the real email, only the derived address.
	if len(f.idp.seenMails) != 1 || f.idp.seenMails[0] != "sam_keeper@members.matchtrack.internal" {
		t.Fatalf("provider saw unexpected addresses: %+v", f.idp.seenMails)
	}

	principal, err := f.service.Verify(t.Context(), pair.AccessToken)
	if err != nil {
		t.Fatalf("verify access token: %v", err)
	}
	if principal.UserID != profile.ID || principal.Role != user.RoleTeamFan {
		t.Fatalf("unexpected principal: %+v", principal)
	}
}

func TestIdentityService_Signup_UsernameTaken(t *testing.T) {
	f := newIdentityFixture(t)

	if _, _, err := f.service.Signup(t.Context(), usecase.SignupInput{
		Username: "sam_keeper", Password: "correct horse", Email: "sam@example.com",
	}); err != nil {
		t.Fatalf("first signup: %v", err)
	}

	_, _, err := f.service.Signup(t.Context(), usecase.SignupInput{
		Username: "Sam_Keeper", Password: "other password", Email: "other@example.com",
	})
	if !errors.Is(err, usecase.ErrConflict) {
		t.Fatalf("case-insensitive duplicate username must conflict, got %v", err)
	}
}

func TestIdentityService_Signup_RejectsWeakInput(t *testing.T) {
	f := newIdentityFixture(t)

	if _, _, err := f.service.Signup(t.Context(), usecase.SignupInput{
		Username: "ab", Password: "correct horse",
	}); !errors.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("short username must be invalid, got %v", err)
	}
	if _, _, err := f.service.Signup(t.Context(), usecase.SignupInput{
		Username: "sam_keeper", Password: "short",
	}); !errors.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("short password must be invalid, got %v", err)
	}
}

func TestIdentityService_LoginFlow(t *testing.T) {
	f := newIdentityFixture(t)

	if _, _, err := f.service.Signup(t.Context(), usecase.SignupInput{
		Username: "sam_keeper", Password: "correct horse", Email: "sam@example.com",
	}); err != nil {
		t.Fatalf("signup: %v", err)
	}

	pair, profile, err := f.service.Login(t.Context(), usecase.LoginInput{
		Username: "sam_keeper", Password: "correct horse", IP: "10.0.0.1",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if profile.Username != "sam_keeper" || pair.AccessToken == "" {
		t.Fatalf("unexpected login result: %+v", profile)
	}

	_, _, err = f.service.Login(t.Context(), usecase.LoginInput{
		Username: "sam_keeper", Password: "wrong", IP: "10.0.0.1",
	})
	if !errors.Is(err, usecase.ErrUnauthenticated) {
		t.Fatalf("wrong password must be unauthenticated, got %v", err)
	}
	// Both sentinels must survive the wrap so the HTTP layer can answer
	// with the credential-specific code.
	if !errors.Is(err, user.ErrInvalidCredentials) {
		t.Fatalf("wrong password must carry ErrInvalidCredentials, got %v", err)
	}

	_, _, err = f.service.Login(t.Context(), usecase.LoginInput{
		Username: "nobody_here", Password: "whatever", IP: "10.0.0.1",
	})
	if !errors.Is(err, usecase.ErrUnauthenticated) {
		t.Fatalf("unknown user must look like bad credentials, got %v", err)
	}
}

func TestIdentityService_LoginLockout(t *testing.T) {
	f := newIdentityFixture(t)

	if _, _, err := f.service.Signup(t.Context(), usecase.SignupInput{
		Username: "sam_keeper", Password: "correct horse", Email: "sam@example.com",
	}); err != nil {
		t.Fatalf("signup: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, _, err := f.service.Login(t.Context(), usecase.LoginInput{
			Username: "sam_keeper", Password: "wrong", IP: "10.0.0.1",
		}); !errors.Is(err, usecase.ErrUnauthenticated) {
			t.Fatalf("failure %d: got %v", i+1, err)
		}
	}

	// Limit reached: even the right password is locked out for this ip+user.
	_, _, err := f.service.Login(t.Context(), usecase.LoginInput{
		Username: "sam_keeper", Password: "correct horse", IP: "10.0.0.1",
	})
	if !errors.Is(err, usecase.ErrRateLimited) {
		t.Fatalf("expected lockout, got %v", err)
	}

	// A different source address is unaffected.
	if _, _, err := f.service.Login(t.Context(), usecase.LoginInput{
		Username: "sam_keeper", Password: "correct horse", IP: "10.9.9.9",
	}); err != nil {
		t.Fatalf("login from other ip: %v", err)
	}
}

func TestIdentityService_RefreshRotation(t *testing.T) {
	f := newIdentityFixture(t)

	pair, profile, err := f.service.Signup(t.Context(), usecase.SignupInput{
		Username: "sam_keeper", Password: "correct horse", Email: "sam@example.com",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	rotated, rotatedProfile, err := f.service.Refresh(t.Context(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rotatedProfile.ID != profile.ID {
		t.Fatalf("refresh changed identity: %s", rotatedProfile.ID)
	}
	if rotated.RefreshToken == pair.RefreshToken {
		t.Fatalf("refresh must rotate the token")
	}

	// Replaying the rotated-away token burns the whole family.
	if _, _, err := f.service.Refresh(t.Context(), pair.RefreshToken); !errors.Is(err, usecase.ErrUnauthenticated) {
		t.Fatalf("replayed token must be rejected, got %v", err)
	}
	if _, _, err := f.service.Refresh(t.Context(), rotated.RefreshToken); !errors.Is(err, usecase.ErrUnauthenticated) {
		t.Fatalf("family must be revoked after reuse, got %v", err)
	}
}

func TestIdentityService_Logout(t *testing.T) {
	f := newIdentityFixture(t)

	pair, _, err := f.service.Signup(t.Context(), usecase.SignupInput{
		Username: "sam_keeper", Password: "correct horse", Email: "sam@example.com",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	if err := f.service.Logout(t.Context(), pair.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, _, err := f.service.Refresh(t.Context(), pair.RefreshToken); !errors.Is(err, usecase.ErrUnauthenticated) {
		t.Fatalf("refresh after logout must fail, got %v", err)
	}

	// Logout is idempotent, including for unknown tokens.
	if err := f.service.Logout(t.Context(), pair.RefreshToken); err != nil {
		t.Fatalf("second logout: %v", err)
	}
	if err := f.service.Logout(t.Context(), "never-issued"); err != nil {
		t.Fatalf("logout of unknown token: %v", err)
	}
}

func TestIdentityService_LogoutByAccessToken(t *testing.T) {
	f := newIdentityFixture(t)

	pair, _, err := f.service.Signup(t.Context(), usecase.SignupInput{
		Username: "sam_keeper", Password: "correct horse", Email: "sam@example.com",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	if err := f.service.LogoutAccess(t.Context(), pair.AccessToken); err != nil {
		t.Fatalf("logout by access token: %v", err)
	}
	if _, _, err := f.service.Refresh(t.Context(), pair.RefreshToken); !errors.Is(err, usecase.ErrUnauthenticated) {
		t.Fatalf("refresh after access-token logout must fail, got %v", err)
	}

	// A second logout with the same token finds no live session and succeeds.
	if err := f.service.LogoutAccess(t.Context(), pair.AccessToken); err != nil {
		t.Fatalf("second logout: %v", err)
	}

	if err := f.service.LogoutAccess(t.Context(), "not-a-token"); !errors.Is(err, usecase.ErrUnauthenticated) {
		t.Fatalf("garbage access token must be unauthenticated, got %v", err)
	}
}

func TestIdentityService_Verify_RejectsGarbage(t *testing.T) {
	f := newIdentityFixture(t)

	if _, err := f.service.Verify(t.Context(), "not-a-token"); !errors.Is(err, usecase.ErrUnauthenticated) {
		t.Fatalf("garbage token must be unauthenticated, got %v", err)
	}
}

func TestIdentityService_UpdateProfile(t *testing.T) {
	f := newIdentityFixture(t)

	_, profile, err := f.service.Signup(t.Context(), usecase.SignupInput{
		Username: "sam_keeper", Password: "correct horse", Email: "sam@example.com",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	displayName := "Sam K."
	number := 12
	updated, err := f.service.UpdateProfile(t.Context(), profile.ID, usecase.UpdateProfileInput{
		DisplayName:  &displayName,
		PlayerNumber: &number,
		Positions:    []string{"GK"},
	})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.DisplayName != "Sam K." || updated.PlayerNumber == nil || *updated.PlayerNumber != 12 {
		t.Fatalf("unexpected profile: %+v", updated)
	}
	if updated.Role != profile.Role {
		t.Fatalf("profile update must not change role")
	}

	bad := 120
	if _, err := f.service.UpdateProfile(t.Context(), profile.ID, usecase.UpdateProfileInput{
		PlayerNumber: &bad,
	}); !errors.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("out-of-range player number must be invalid, got %v", err)
	}

	if _, err := f.service.UpdateProfile(t.Context(), "missing", usecase.UpdateProfileInput{}); !errors.Is(err, usecase.ErrNotFound) {
		t.Fatalf("unknown profile must be not found, got %v", err)
	}
}

func TestIdentityService_SignupWithInvite(t *testing.T) {
	f := newIdentityFixture(t)
	inviteFx := newInviteFixture(t)
	f.service.SetInviteConsumer(inviteFx.service)

	// The invite fixture has its own user store; seed the issuer there.
	teamMgr := inviteFx.seedUser(t, "tm-1", user.RoleTeamManager, &inviteFx.clubID, &inviteFx.teamID)
	if err := inviteFx.users.AssignManagerTeam(t.Context(), "tm-1", inviteFx.teamID); err != nil {
		t.Fatalf("assign manager team: %v", err)
	}
	created, err := inviteFx.service.Create(t.Context(), teamMgr, usecase.CreateInviteInput{
		Type: "team_player", TeamID: &inviteFx.teamID,
	})
	if err != nil {
		t.Fatalf("create invite: %v", err)
	}

	_, profile, err := f.service.Signup(t.Context(), usecase.SignupInput{
		Username:   "junior_player",
		Password:   "correct horse",
		Email:      "junior@example.com",
		InviteCode: created.Code,
	})
	if err != nil {
		t.Fatalf("signup with invite: %v", err)
	}
	if profile.Role != user.RoleTeamPlayer {
		t.Fatalf("invite role not applied: %s", profile.Role)
	}
	if profile.TeamID == nil || *profile.TeamID != inviteFx.teamID {
		t.Fatalf("invite team scope not applied: %+v", profile.TeamID)
	}
}
