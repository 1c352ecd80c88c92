package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/examportal/portal-backend/internal/config"
	"github.com/examportal/portal-backend/internal/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

func newAuthFixture() (*AuthService, *fakeUserStore, *fakeTokenStore, *fakeQueue) {
	cfg := &config.Config{
		JWTSecret:     "test-secret",
		JWTExpiry:     15 * time.Minute,
		RefreshExpiry: 24 * time.Hour,
		BcryptCost:    bcrypt.MinCost,
	}
	users := newFakeUserStore()
	tokens := newFakeTokenStore()
	queue := &fakeQueue{}
	guard := NewDeviceGuard(users, zerolog.Nop())
	return NewAuthService(cfg, users, tokens, guard, queue, zerolog.Nop()), users, tokens, queue
}

func registerUser(t *testing.T, svc *AuthService) *model.User {
	t.Helper()
	u, err := svc.Register(context.Background(), &model.RegisterRequest{
		Email:           "Ana@Example.com",
		Username:        "ana",
		Password:        "password123",
		PasswordConfirm: "password123",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return u
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()
	svc, users, _, _ := newAuthFixture()

	u := registerUser(t, svc)
	if u.Email != "ana@example.com" || u.Role != model.RoleUser || !u.IsActive {
		t.Errorf("unexpected user %+v", u)
	}
	if u.PasswordHash == "password123" || svc.CheckPassword(u.PasswordHash, "password123") != nil {
		t.Error("password not hashed with bcrypt")
	}
	if _, ok := users.profiles[u.ID]; !ok {
		t.Error("profile not created")
	}

	tests := []struct {
		name    string
		req     model.RegisterRequest
		wantErr error
	}{
		{"email taken", model.RegisterRequest{Email: "ana@example.com", Username: "other", Password: "password123"}, ErrEmailTaken},
		{"username taken", model.RegisterRequest{Email: "new@example.com", Username: "ana", Password: "password123"}, ErrUsernameTaken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Register(ctx, &tt.req); !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	svc, _, tokens, queue := newAuthFixture()
	u := registerUser(t, svc)
	client := model.ClientInfo{IP: "10.0.0.1", UserAgent: "test"}

	resp, err := svc.Login(ctx, &model.LoginRequest{Identifier: "ana", Password: "password123", DeviceFingerprint: "fp-a"}, client)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.User.ID != u.ID || resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Errorf("unexpected response %+v", resp)
	}

	claims, err := svc.ValidateToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.TokenType != TokenTypeAccess || claims.UserID != u.ID || claims.ID != tokens.access[u.ID] {
		t.Errorf("claims = %+v", claims)
	}
	if err := svc.ValidateSession(ctx, u.ID, claims.ID); err != nil {
		t.Errorf("ValidateSession: %v", err)
	}

	if len(queue.audits) != 1 || queue.audits[0].Event != model.EventLogin || !queue.audits[0].Succeeded {
		t.Errorf("audits = %+v", queue.audits)
	}
}

func TestAuthService_LoginFailures(t *testing.T) {
	ctx := context.Background()
	svc, users, _, queue := newAuthFixture()
	u := registerUser(t, svc)
	svc.Login(ctx, &model.LoginRequest{Identifier: "ana", Password: "password123", DeviceFingerprint: "fp-a"}, model.ClientInfo{})
	queue.audits = nil

	tests := []struct {
		name      string
		req       model.LoginRequest
		wantErr   error
		wantEvent string
	}{
		{"unknown user", model.LoginRequest{Identifier: "nobody", Password: "x", DeviceFingerprint: "fp-a"}, ErrInvalidCredentials, model.EventLoginFailed},
		{"wrong password", model.LoginRequest{Identifier: "ana", Password: "nope", DeviceFingerprint: "fp-a"}, ErrInvalidCredentials, model.EventLoginFailed},
		{"other device", model.LoginRequest{Identifier: "ana", Password: "password123", DeviceFingerprint: "fp-b"}, ErrDeviceMismatch, model.EventDeviceBlocked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue.audits = nil
			if _, err := svc.Login(ctx, &tt.req, model.ClientInfo{}); !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if len(queue.audits) != 1 || queue.audits[0].Event != tt.wantEvent || queue.audits[0].Succeeded {
				t.Errorf("audits = %+v", queue.audits)
			}
		})
	}

	users.users[u.ID].IsActive = false
	if _, err := svc.Login(ctx, &model.LoginRequest{Identifier: "ana", Password: "password123", DeviceFingerprint: "fp-a"}, model.ClientInfo{}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("inactive user err = %v, want ErrInvalidCredentials", err)
	}
}

func TestAuthService_LoginInfrastructureFailures(t *testing.T) {
	ctx := context.Background()
	errDown := errors.New("connection refused")
	req := model.LoginRequest{Identifier: "ana", Password: "password123", DeviceFingerprint: "fp-a"}

	tests := []struct {
		name     string
		breakIt  func(users *fakeUserStore, tokens *fakeTokenStore)
		wantUser bool
	}{
		{"user lookup", func(u *fakeUserStore, _ *fakeTokenStore) { u.lookupErr = errDown }, false},
		{"device bind", func(u *fakeUserStore, _ *fakeTokenStore) { u.bindErr = errDown }, true},
		{"session store", func(_ *fakeUserStore, tk *fakeTokenStore) { tk.saveErr = errDown }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, users, tokens, queue := newAuthFixture()
			u := registerUser(t, svc)
			tt.breakIt(users, tokens)

			if _, err := svc.Login(ctx, &req, model.ClientInfo{IP: "10.0.0.9"}); !errors.Is(err, errDown) {
				t.Fatalf("err = %v, want wrapped %v", err, errDown)
			}
			if len(queue.audits) != 1 {
				t.Fatalf("audits = %+v, want one entry", queue.audits)
			}
			got := queue.audits[0]
			if got.Event != model.EventLoginFailed || got.Succeeded || got.IP != "10.0.0.9" {
				t.Errorf("audit = %+v", got)
			}
			if tt.wantUser && (got.UserID == nil || *got.UserID != u.ID) {
				t.Errorf("audit user = %v, want %d", got.UserID, u.ID)
			}
			if !tt.wantUser && got.UserID != nil {
				t.Errorf("audit user = %v, want nil", *got.UserID)
			}
		})
	}
}

func TestAuthService_RefreshAndLogout(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newAuthFixture()
	u := registerUser(t, svc)

	first, err := svc.Login(ctx, &model.LoginRequest{Identifier: "ana", Password: "password123", DeviceFingerprint: "fp-a"}, model.ClientInfo{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, err := svc.Refresh(ctx, first.AccessToken); !errors.Is(err, ErrInvalidTokenType) {
		t.Errorf("refresh with access token err = %v, want ErrInvalidTokenType", err)
	}

	second, err := svc.Refresh(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	oldClaims, _ := svc.ValidateToken(first.AccessToken)
	if err := svc.ValidateSession(ctx, u.ID, oldClaims.ID); !errors.Is(err, ErrSessionInvalidated) {
		t.Errorf("old access token still live: %v", err)
	}
	if _, err := svc.Refresh(ctx, first.RefreshToken); !errors.Is(err, ErrSessionInvalidated) {
		t.Errorf("reused refresh token err = %v, want ErrSessionInvalidated", err)
	}

	if err := svc.Logout(ctx, u.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	newClaims, _ := svc.ValidateToken(second.AccessToken)
	if err := svc.ValidateSession(ctx, u.ID, newClaims.ID); !errors.Is(err, ErrSessionInvalidated) {
		t.Errorf("session after logout err = %v, want ErrSessionInvalidated", err)
	}
}

func TestAuthService_ValidateToken(t *testing.T) {
	svc, _, _, _ := newAuthFixture()
	u := &model.User{ID: 3, Role: model.RoleAdmin}

	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, err := svc.sign(u, TokenTypeAccess, "jti", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	svc.now = time.Now
	if _, err := svc.ValidateToken(expired); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Errorf("expired token err = %v, want jwt.ErrTokenExpired", err)
	}

	other := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: 3})
	forged, _ := other.SignedString([]byte("another-secret"))
	if _, err := svc.ValidateToken(forged); !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		t.Errorf("forged token err = %v, want jwt.ErrTokenSignatureInvalid", err)
	}
}

func TestAuthService_Me(t *testing.T) {
	ctx := context.Background()
	svc, users, _, _ := newAuthFixture()
	u := registerUser(t, svc)

	start := time.Now().Add(-time.Hour)
	end := time.Now().Add(time.Hour)
	users.profiles[u.ID].AccessStart = &start
	users.profiles[u.ID].AccessEnd = &end

	me, err := svc.Me(ctx, u.ID)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if !me.HasActiveAccess || me.Username != "ana" {
		t.Errorf("Me = %+v", me)
	}
	if _, err := svc.Me(ctx, 999); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown user err = %v, want ErrUserNotFound", err)
	}
}
