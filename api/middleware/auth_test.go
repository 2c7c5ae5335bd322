package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgAuth "github.com/heykudos/kudos-backend/pkg/auth"
	"github.com/heykudos/kudos-backend/pkg/config"
	"github.com/heykudos/kudos-backend/pkg/logger"
)

var testJWTConfig = config.JWTConfig{
	Secret:            "test-secret",
	Issuer:            "kudos-test",
	ExpirationMinutes: 60,
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func mintToken(t *testing.T, payload pkgAuth.AccessTokenPayload) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(testJWTConfig, time.Now(), payload)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestAuthSeedsIdentityContext(t *testing.T) {
	userID := uuid.New()
	companyID := uuid.New()
	memberID := uuid.New()
	token := mintToken(t, pkgAuth.AccessTokenPayload{
		UserID:    userID,
		CompanyID: companyID,
		MemberID:  memberID,
		IsAdmin:   true,
	})

	var seen struct {
		userID    string
		companyID string
		memberID  string
		isAdmin   bool
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.userID = UserIDFromContext(r.Context())
		seen.companyID = CompanyIDFromContext(r.Context())
		seen.memberID = MemberIDFromContext(r.Context())
		seen.isAdmin = IsAdminFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/members", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	Auth(testJWTConfig, testLogger())(next).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if seen.userID != userID.String() {
		t.Fatalf("unexpected user id %q", seen.userID)
	}
	if seen.companyID != companyID.String() {
		t.Fatalf("unexpected company id %q", seen.companyID)
	}
	if seen.memberID != memberID.String() {
		t.Fatalf("unexpected member id %q", seen.memberID)
	}
	if !seen.isAdmin {
		t.Fatal("expected admin flag set")
	}
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/members", nil)
	resp := httptest.NewRecorder()
	Auth(testJWTConfig, testLogger())(next).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsWrongSecret(t *testing.T) {
	otherCfg := testJWTConfig
	otherCfg.Secret = "another-secret"
	token, err := pkgAuth.MintAccessToken(otherCfg, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:    uuid.New(),
		CompanyID: uuid.New(),
		MemberID:  uuid.New(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/members", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	Auth(testJWTConfig, testLogger())(next).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestRequireAdminBlocksNonAdmin(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/seat-migration/analyze", nil)
	req = req.WithContext(WithIdentity(req.Context(), uuid.NewString(), uuid.NewString(), uuid.NewString(), false))
	resp := httptest.NewRecorder()
	RequireAdmin(testLogger())(next).ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestRequireAdminAllowsAdmin(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/seat-migration/analyze", nil)
	req = req.WithContext(WithIdentity(req.Context(), uuid.NewString(), uuid.NewString(), uuid.NewString(), true))
	resp := httptest.NewRecorder()
	RequireAdmin(testLogger())(next).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if !called {
		t.Fatal("expected handler called")
	}
}
