package services

import (
	"context"
	"testing"
	"time"

	"github.com/quillflow/quillflow-core/internal/core/domain"
	"github.com/quillflow/quillflow-core/internal/core/ports/driven/mocks"
)

func newTestAuthService() (*mocks.MockUserStore, *mocks.MockSessionStore, *mocks.MockAuthAdapter, *authService) {
	userStore := mocks.NewMockUserStore()
	sessionStore := mocks.NewMockSessionStore()
	authAdapter := mocks.NewMockAuthAdapter()
	svc := NewAuthService(userStore, sessionStore, authAdapter).(*authService)
	return userStore, sessionStore, authAdapter, svc
}

// seedUser stores a user the mock hasher will accept with the given password
// (the mock compares plain text).
func seedUser(t *testing.T, store *mocks.MockUserStore, id, email, password string, role domain.Role, active bool) {
	t.Helper()
	user := &domain.User{
		ID:           id,
		Email:        email,
		PasswordHash: password,
		Name:         "Fixture User",
		Role:         role,
		Active:       active,
		CreatedAt:    time.Now(),
	}
	if err := store.Save(context.Background(), user); err != nil {
		t.Fatalf("failed to seed user %s: %v", id, err)
	}
}

func TestAuthService_Authenticate(t *testing.T) {
	userStore, _, _, svc := newTestAuthService()

	seedUser(t, userStore, "owner-1", "owner@quillflow.dev", "sign-here-42", domain.RoleMember, true)

	tests := []struct {
		name    string
		req     domain.LoginRequest
		wantErr error
	}{
		{
			name: "valid credentials",
			req: domain.LoginRequest{
				Email:    "owner@quillflow.dev",
				Password: "sign-here-42",
			},
			wantErr: nil,
		},
		{
			name: "empty email",
			req: domain.LoginRequest{
				Email:    "",
				Password: "sign-here-42",
			},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name: "empty password",
			req: domain.LoginRequest{
				Email:    "owner@quillflow.dev",
				Password: "",
			},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name: "wrong password",
			req: domain.LoginRequest{
				Email:    "owner@quillflow.dev",
				Password: "guess-again",
			},
			wantErr: domain.ErrInvalidCredentials,
		},
		{
			name: "unknown user",
			req: domain.LoginRequest{
				Email:    "nobody@quillflow.dev",
				Password: "sign-here-42",
			},
			wantErr: domain.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.Authenticate(context.Background(), tt.req)

			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp == nil {
				t.Fatal("expected response to be returned")
			}
			if resp.Token == "" {
				t.Error("expected token to be generated")
			}
			if resp.RefreshToken == "" {
				t.Error("expected refresh token to be generated")
			}
			if resp.User.Email != tt.req.Email {
				t.Errorf("expected user email %s, got %s", tt.req.Email, resp.User.Email)
			}
		})
	}
}

func TestAuthService_Authenticate_DeactivatedAccount(t *testing.T) {
	userStore, _, _, svc := newTestAuthService()

	// A signer whose account was deactivated keeps their record but may not
	// log in.
	seedUser(t, userStore, "signer-9", "former-signer@quillflow.dev", "sign-here-42", domain.RoleMember, false)

	_, err := svc.Authenticate(context.Background(), domain.LoginRequest{
		Email:    "former-signer@quillflow.dev",
		Password: "sign-here-42",
	})

	if err != domain.ErrUnauthorized {
		t.Errorf("expected ErrUnauthorized for deactivated account, got %v", err)
	}
}

func TestAuthService_ValidateToken(t *testing.T) {
	userStore, sessionStore, authAdapter, svc := newTestAuthService()

	issueToken := func(userID, email, sessionID string, role domain.Role, issued, expires time.Time) string {
		token, _ := authAdapter.GenerateToken(&domain.TokenClaims{
			UserID:    userID,
			Email:     email,
			Role:      role,
			SessionID: sessionID,
			IssuedAt:  issued.Unix(),
			ExpiresAt: expires.Unix(),
		})
		return token
	}

	openSession := func(sessionID, userID, token string, expiresAt time.Time) {
		_ = sessionStore.Save(context.Background(), &domain.Session{
			ID:        sessionID,
			UserID:    userID,
			Token:     token,
			ExpiresAt: expiresAt,
			CreatedAt: time.Now(),
		})
	}

	tests := []struct {
		name           string
		setupFunc      func(ctx context.Context) string
		wantErr        error
		validateResult func(t *testing.T, authCtx *domain.AuthContext)
	}{
		{
			name: "empty token",
			setupFunc: func(ctx context.Context) string {
				return ""
			},
			wantErr: domain.ErrTokenInvalid,
		},
		{
			name: "garbage token",
			setupFunc: func(ctx context.Context) string {
				return "not!a@token#"
			},
			wantErr: domain.ErrTokenInvalid,
		},
		{
			name: "expired token",
			setupFunc: func(ctx context.Context) string {
				return issueToken("owner-1", "owner@quillflow.dev", "sess-stale", domain.RoleMember,
					time.Now().Add(-2*time.Hour), time.Now().Add(-time.Hour))
			},
			wantErr: domain.ErrTokenExpired,
		},
		{
			name: "token without a live session",
			setupFunc: func(ctx context.Context) string {
				return issueToken("owner-1", "owner@quillflow.dev", "sess-missing", domain.RoleMember,
					time.Now(), time.Now().Add(time.Hour))
			},
			wantErr: domain.ErrSessionNotFound,
		},
		{
			name: "session expired behind a live token",
			setupFunc: func(ctx context.Context) string {
				token := issueToken("signer-2", "signer-2@quillflow.dev", "sess-lapsed", domain.RoleMember,
					time.Now(), time.Now().Add(time.Hour))
				openSession("sess-lapsed", "signer-2", token, time.Now().Add(-time.Minute))
				return token
			},
			wantErr: domain.ErrTokenExpired,
		},
		{
			name: "member validates",
			setupFunc: func(ctx context.Context) string {
				_ = userStore.Save(ctx, &domain.User{
					ID:     "signer-3",
					Email:  "signer-3@quillflow.dev",
					Name:   "Third Signer",
					Role:   domain.RoleMember,
					Active: true,
				})
				token := issueToken("signer-3", "signer-3@quillflow.dev", "sess-signer-3", domain.RoleMember,
					time.Now(), time.Now().Add(time.Hour))
				openSession("sess-signer-3", "signer-3", token, time.Now().Add(time.Hour))
				return token
			},
			wantErr: nil,
			validateResult: func(t *testing.T, authCtx *domain.AuthContext) {
				if authCtx == nil {
					t.Fatal("expected non-nil auth context")
				}
				if authCtx.UserID != "signer-3" {
					t.Errorf("expected UserID 'signer-3', got '%s'", authCtx.UserID)
				}
				if authCtx.Email != "signer-3@quillflow.dev" {
					t.Errorf("expected Email 'signer-3@quillflow.dev', got '%s'", authCtx.Email)
				}
				if authCtx.Role != domain.RoleMember {
					t.Errorf("expected Role 'member', got '%s'", authCtx.Role)
				}
				if authCtx.SessionID != "sess-signer-3" {
					t.Errorf("expected SessionID 'sess-signer-3', got '%s'", authCtx.SessionID)
				}
			},
		},
		{
			name: "admin validates with admin role",
			setupFunc: func(ctx context.Context) string {
				_ = userStore.Save(ctx, &domain.User{
					ID:     "admin-1",
					Email:  "admin@quillflow.dev",
					Name:   "Team Admin",
					Role:   domain.RoleAdmin,
					Active: true,
				})
				token := issueToken("admin-1", "admin@quillflow.dev", "sess-admin", domain.RoleAdmin,
					time.Now(), time.Now().Add(time.Hour))
				openSession("sess-admin", "admin-1", token, time.Now().Add(time.Hour))
				return token
			},
			wantErr: nil,
			validateResult: func(t *testing.T, authCtx *domain.AuthContext) {
				if authCtx == nil {
					t.Fatal("expected non-nil auth context")
				}
				if authCtx.Role != domain.RoleAdmin {
					t.Errorf("expected Role 'admin', got '%s'", authCtx.Role)
				}
				if !authCtx.IsAdmin() {
					t.Error("expected IsAdmin() to return true")
				}
			},
		},
		{
			name: "token on the edge of expiry still validates",
			setupFunc: func(ctx context.Context) string {
				token := issueToken("signer-4", "signer-4@quillflow.dev", "sess-edge", domain.RoleMember,
					time.Now(), time.Now().Add(time.Second))
				openSession("sess-edge", "signer-4", token, time.Now().Add(time.Second))
				return token
			},
			wantErr: nil,
			validateResult: func(t *testing.T, authCtx *domain.AuthContext) {
				if authCtx == nil {
					t.Fatal("expected non-nil auth context")
				}
				if authCtx.SessionID != "sess-edge" {
					t.Errorf("expected SessionID 'sess-edge', got '%s'", authCtx.SessionID)
				}
			},
		},
		{
			name: "token just past expiry is rejected",
			setupFunc: func(ctx context.Context) string {
				return issueToken("signer-5", "signer-5@quillflow.dev", "sess-past", domain.RoleMember,
					time.Now().Add(-2*time.Second), time.Now().Add(-time.Second))
			},
			wantErr: domain.ErrTokenExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			token := tt.setupFunc(ctx)

			authCtx, err := svc.ValidateToken(ctx, token)

			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				if authCtx != nil {
					t.Error("expected nil auth context on error")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if tt.validateResult != nil {
				tt.validateResult(t, authCtx)
			}
		})
	}
}

func TestAuthService_Logout(t *testing.T) {
	_, _, _, svc := newTestAuthService()

	// Logging out an empty or unknown token is a no-op, not an error.
	if err := svc.Logout(context.Background(), ""); err != nil {
		t.Errorf("expected no error for empty token, got %v", err)
	}
	if err := svc.Logout(context.Background(), "never-issued"); err != nil {
		t.Errorf("expected no error for unknown token, got %v", err)
	}
}

func TestAuthService_LogoutAll(t *testing.T) {
	userStore, sessionStore, _, svc := newTestAuthService()

	seedUser(t, userStore, "owner-1", "owner@quillflow.dev", "sign-here-42", domain.RoleMember, true)

	session := &domain.Session{
		ID:        "sess-desk",
		UserID:    "owner-1",
		Token:     "tok-desk",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	_ = sessionStore.Save(context.Background(), session)

	if err := svc.LogoutAll(context.Background(), "owner-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := sessionStore.Get(context.Background(), "sess-desk")
	if err != domain.ErrSessionNotFound {
		t.Error("expected session to be deleted")
	}
}

func TestAuthService_RefreshToken(t *testing.T) {
	userStore, sessionStore, _, svc := newTestAuthService()

	_, err := svc.RefreshToken(context.Background(), domain.RefreshRequest{
		RefreshToken: "",
	})
	if err != domain.ErrTokenInvalid {
		t.Errorf("expected ErrTokenInvalid for empty refresh token, got %v", err)
	}

	_, err = svc.RefreshToken(context.Background(), domain.RefreshRequest{
		RefreshToken: "never-issued",
	})
	if err != domain.ErrTokenInvalid {
		t.Errorf("expected ErrTokenInvalid for unknown refresh token, got %v", err)
	}

	seedUser(t, userStore, "signer-2", "signer-2@quillflow.dev", "sign-here-42", domain.RoleMember, true)

	session := &domain.Session{
		ID:           "sess-signer-2",
		UserID:       "signer-2",
		Token:        "tok-signer-2",
		RefreshToken: "refresh-signer-2",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	_ = sessionStore.Save(context.Background(), session)

	resp, err := svc.RefreshToken(context.Background(), domain.RefreshRequest{
		RefreshToken: "refresh-signer-2",
	})
	if err != nil {
		t.Fatalf("expected no error for valid refresh token, got %v", err)
	}
	if resp.Token == "" {
		t.Error("expected new token to be generated")
	}
	if resp.RefreshToken == "" {
		t.Error("expected new refresh token to be generated")
	}
}

func TestAuthService_ChangePassword(t *testing.T) {
	userStore, _, _, svc := newTestAuthService()

	seedUser(t, userStore, "owner-1", "owner@quillflow.dev", "old-secret", domain.RoleMember, true)

	tests := []struct {
		name    string
		userID  string
		req     domain.ChangePasswordRequest
		wantErr error
	}{
		{
			name:   "empty current password",
			userID: "owner-1",
			req: domain.ChangePasswordRequest{
				CurrentPassword: "",
				NewPassword:     "new-secret",
			},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:   "empty new password",
			userID: "owner-1",
			req: domain.ChangePasswordRequest{
				CurrentPassword: "old-secret",
				NewPassword:     "",
			},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:   "wrong current password",
			userID: "owner-1",
			req: domain.ChangePasswordRequest{
				CurrentPassword: "guess-again",
				NewPassword:     "new-secret",
			},
			wantErr: domain.ErrInvalidCredentials,
		},
		{
			name:   "non-existent user",
			userID: "nobody",
			req: domain.ChangePasswordRequest{
				CurrentPassword: "old-secret",
				NewPassword:     "new-secret",
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name:   "valid password change",
			userID: "owner-1",
			req: domain.ChangePasswordRequest{
				CurrentPassword: "old-secret",
				NewPassword:     "new-secret",
			},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.ChangePassword(context.Background(), tt.userID, tt.req)

			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestAuthService_ChangePassword_InvalidatesSessions(t *testing.T) {
	userStore, sessionStore, _, svc := newTestAuthService()

	seedUser(t, userStore, "signer-7", "signer-7@quillflow.dev", "old-secret", domain.RoleMember, true)

	session := &domain.Session{
		ID:        "sess-signer-7",
		UserID:    "signer-7",
		Token:     "tok-signer-7",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	_ = sessionStore.Save(context.Background(), session)

	err := svc.ChangePassword(context.Background(), "signer-7", domain.ChangePasswordRequest{
		CurrentPassword: "old-secret",
		NewPassword:     "new-secret",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = sessionStore.Get(context.Background(), "sess-signer-7")
	if err != domain.ErrSessionNotFound {
		t.Error("expected session to be invalidated after password change")
	}
}

func TestGenerateID(t *testing.T) {
	id1 := generateID()
	id2 := generateID()

	if id1 == "" {
		t.Error("expected non-empty ID")
	}
	if id1 == id2 {
		t.Error("expected unique IDs")
	}
}

func TestGenerateRefreshToken(t *testing.T) {
	token1 := generateRefreshToken()
	token2 := generateRefreshToken()

	if token1 == "" {
		t.Error("expected non-empty refresh token")
	}
	if token1 == token2 {
		t.Error("expected unique refresh tokens")
	}
	if len(token1) < 30 {
		t.Error("expected longer refresh token")
	}
}
