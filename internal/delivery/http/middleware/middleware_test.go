package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"medical-office-api/config"
	"medical-office-api/internal/domain/entity"
	"medical-office-api/internal/infrastructure/cache"
	"medical-office-api/pkg/jwt"
	"medical-office-api/pkg/metrics"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
)

type memoryTokenStore struct {
	tokens map[string]bool
}

func (s *memoryTokenStore) key(kind cache.TokenKind, userID uuid.UUID, tokenID string) string {
	return string(kind) + ":" + userID.String() + ":" + tokenID
}

func (s *memoryTokenStore) Store(ctx context.Context, kind cache.TokenKind, userID uuid.UUID, tokenID string, ttl time.Duration) error {
	s.tokens[s.key(kind, userID, tokenID)] = true
	return nil
}

func (s *memoryTokenStore) Exists(ctx context.Context, kind cache.TokenKind, userID uuid.UUID, tokenID string) (bool, error) {
	return s.tokens[s.key(kind, userID, tokenID)], nil
}

func (s *memoryTokenStore) Revoke(ctx context.Context, kind cache.TokenKind, userID uuid.UUID, tokenID string) error {
	delete(s.tokens, s.key(kind, userID, tokenID))
	return nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type authFixture struct {
	jwt    *jwt.JWTService
	tokens *memoryTokenStore
	mw     *AuthMiddleware
}

func newAuthFixture() *authFixture {
	svc := jwt.NewJWTService(config.JWTConfig{
		Secret:        "middleware-secret",
		AccessExpiry:  time.Minute,
		RefreshExpiry: time.Hour,
	})
	tokens := &memoryTokenStore{tokens: map[string]bool{}}
	return &authFixture{jwt: svc, tokens: tokens, mw: NewAuthMiddleware(svc, tokens, quietLogger())}
}

func (f *authFixture) issue(t *testing.T, userID uuid.UUID, roleID int) (string, string) {
	t.Helper()
	token, tokenID, err := f.jwt.GenerateAccessToken(userID, "user@example.com", roleID)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	_ = f.tokens.Store(context.Background(), cache.AccessTokenKind, userID, tokenID, time.Minute)
	return token, tokenID
}

func serve(h http.Handler, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticatePutsActorOnContext(t *testing.T) {
	f := newAuthFixture()
	userID := uuid.New()
	token, _ := f.issue(t, userID, entity.RoleIDDoctor)

	var got entity.Actor
	h := f.mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := serve(h, token)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if got.UserID != userID || !got.IsDoctor() {
		t.Fatalf("actor = %+v", got)
	}
}

func TestAuthenticateRejects(t *testing.T) {
	f := newAuthFixture()
	userID := uuid.New()
	revoked, revokedID := f.issue(t, userID, entity.RoleIDSecretary)
	_ = f.tokens.Revoke(context.Background(), cache.AccessTokenKind, userID, revokedID)

	refresh, _, err := f.jwt.GenerateRefreshToken(userID, "user@example.com", entity.RoleIDSecretary)
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}

	reached := false
	h := f.mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	for name, bearer := range map[string]string{
		"missing header": "",
		"garbage token":  "not-a-jwt",
		"revoked token":  revoked,
		"refresh token":  refresh,
	} {
		if rec := serve(h, bearer); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", name, rec.Code)
		}
	}
	if reached {
		t.Fatal("handler reached with invalid credentials")
	}
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	cases := []struct {
		name   string
		roleID int
		h      http.Handler
		want   int
	}{
		{"secretary on secretary route", entity.RoleIDSecretary, RequireSecretary(ok), http.StatusOK},
		{"doctor on secretary route", entity.RoleIDDoctor, RequireSecretary(ok), http.StatusForbidden},
		{"doctor on shared route", entity.RoleIDDoctor, RequireSecretaryOrDoctor(ok), http.StatusOK},
		{"patient on shared route", entity.RoleIDPatient, RequireSecretaryOrDoctor(ok), http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithClaims(req.Context(), uuid.New(), "x@example.com", tc.roleID, "tid"))
		rec := httptest.NewRecorder()
		tc.h.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.name, rec.Code, tc.want)
		}
	}

	rec := httptest.NewRecorder()
	RequireSecretary(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no claims: status = %d, want 401", rec.Code)
	}
}

func TestObservabilityLabelsByRouteTemplate(t *testing.T) {
	collector := metrics.NewCollector("test", prometheus.NewRegistry())
	obs := NewObservabilityMiddleware(quietLogger(), collector)

	var seenID string
	router := mux.NewRouter()
	router.Use(obs.Handle)
	router.HandleFunc("/appointments/{id}", func(w http.ResponseWriter, r *http.Request) {
		seenID, _ = GetRequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusNotFound)
	}).Methods(http.MethodGet)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/appointments/"+uuid.NewString(), nil)
		req.Header.Set(RequestIDHeader, "req-42")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Header().Get(RequestIDHeader) != "req-42" {
			t.Fatalf("request id header = %q", rec.Header().Get(RequestIDHeader))
		}
	}
	if seenID != "req-42" {
		t.Fatalf("request id in context = %q", seenID)
	}

	got := testutil.ToFloat64(collector.RequestsTotal.WithLabelValues(http.MethodGet, "/appointments/{id}", "404"))
	if got != 2 {
		t.Fatalf("requests counted under route template = %v, want 2", got)
	}
	if v := testutil.ToFloat64(collector.InFlightGauge); v != 0 {
		t.Fatalf("in-flight gauge = %v after requests finished", v)
	}
}
