package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndValidate(t *testing.T) {
	s := NewService("secret")
	tok, err := s.IssueToken(Identity{UserID: "user_1", Name: "Ada"}, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	id, err := s.ValidateToken(tok)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if id.UserID != "user_1" || id.Name != "Ada" {
		t.Errorf("identity = %+v", id)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	s := NewService("secret")
	other := NewService("other")
	foreign, _ := other.IssueToken(Identity{UserID: "u"}, time.Hour)

	expired := NewService("secret")
	expired.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	stale, _ := expired.IssueToken(Identity{UserID: "u"}, time.Hour)

	noSub, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrMissingToken},
		{"garbage", "not-a-token", ErrInvalidToken},
		{"wrong secret", foreign, ErrInvalidToken},
		{"expired", stale, ErrInvalidToken},
		{"no subject", noSub, ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.ValidateToken(tt.token); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestValidateTokenUserIDClaim(t *testing.T) {
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": "legacy",
	}).SignedString([]byte("secret"))
	id, err := NewService("secret").ValidateToken(tok)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if id.UserID != "legacy" {
		t.Errorf("user = %q", id.UserID)
	}
}

func TestAuthMiddleware(t *testing.T) {
	s := NewService("secret")
	tok, _ := s.IssueToken(Identity{UserID: "user_1", Name: "Ada"}, time.Hour)
	h := s.AuthMiddleware(http.HandlerFunc(NewHandler(s).Me))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"ok", "Bearer " + tok, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status != http.StatusOK {
				return
			}
			var id Identity
			if err := json.NewDecoder(rec.Body).Decode(&id); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if id.UserID != "user_1" {
				t.Errorf("user = %q", id.UserID)
			}
		})
	}
}

func TestFromQuery(t *testing.T) {
	s := NewService("secret")
	tok, _ := s.IssueToken(Identity{UserID: "user_1"}, 0)
	req := httptest.NewRequest(http.MethodGet, "/ws/rooms?token="+tok, nil)
	id, err := s.FromQuery(req)
	if err != nil || id.UserID != "user_1" {
		t.Fatalf("FromQuery = %+v, %v", id, err)
	}
}
