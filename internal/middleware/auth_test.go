package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campmanager/backend/internal/models"
)

type fakeIDVerifier struct {
	calls int
	token *auth.Token
	err   error
}

func (f *fakeIDVerifier) VerifyIDToken(_ context.Context, _ string) (*auth.Token, error) {
	f.calls++
	return f.token, f.err
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "uid-1",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-key"))
	require.NoError(t, err)
	return s
}

func TestTokenVerifier_Verify(t *testing.T) {
	valid := signed(t, time.Now().Add(time.Hour))

	tests := []struct {
		name      string
		header    string
		fake      *fakeIDVerifier
		wantErr   error
		wantCalls int
		wantID    Identity
	}{
		{name: "no header", header: "", fake: &fakeIDVerifier{}, wantErr: ErrMissingToken},
		{name: "basic scheme", header: "Basic abc", fake: &fakeIDVerifier{}, wantErr: ErrMissingToken},
		{name: "empty bearer", header: "Bearer   ", fake: &fakeIDVerifier{}, wantErr: ErrMissingToken},
		{name: "not a jwt", header: "Bearer not-a-token", fake: &fakeIDVerifier{}, wantErr: ErrMalformedToken},
		{
			name:      "past exp left to provider",
			header:    "Bearer " + signed(t, time.Now().Add(-time.Minute)),
			fake:      &fakeIDVerifier{token: &auth.Token{UID: "uid-1"}},
			wantCalls: 1,
			wantID:    Identity{UID: "uid-1"},
		},
		{
			name:      "rejected by provider",
			header:    "Bearer " + valid,
			fake:      &fakeIDVerifier{err: errors.New("signature mismatch")},
			wantErr:   ErrInvalidToken,
			wantCalls: 1,
		},
		{
			name:      "empty uid",
			header:    "Bearer " + valid,
			fake:      &fakeIDVerifier{token: &auth.Token{}},
			wantErr:   ErrInvalidToken,
			wantCalls: 1,
		},
		{
			name:      "ok",
			header:    "Bearer " + valid,
			fake:      &fakeIDVerifier{token: &auth.Token{UID: "uid-1", Claims: map[string]interface{}{"email": "jane@camp.example.com"}}},
			wantCalls: 1,
			wantID:    Identity{UID: "uid-1", Email: "jane@camp.example.com"},
		},
		{
			name:      "ok without email",
			header:    "Bearer " + valid,
			fake:      &fakeIDVerifier{token: &auth.Token{UID: "uid-2"}},
			wantCalls: 1,
			wantID:    Identity{UID: "uid-2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := NewTokenVerifier(tt.fake).Verify(context.Background(), tt.header)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				require.Equal(t, tt.wantID, id)
			}
			require.Equal(t, tt.wantCalls, tt.fake.calls)
		})
	}
}

func TestTokenVerifier_ProviderExpired(t *testing.T) {
	errExpired := errors.New("ID token has expired")
	fake := &fakeIDVerifier{err: errExpired}
	v := NewTokenVerifier(fake)
	v.isExpired = func(err error) bool { return errors.Is(err, errExpired) }

	_, err := v.Verify(context.Background(), "Bearer "+signed(t, time.Now().Add(-10*time.Minute)))

	require.ErrorIs(t, err, ErrExpiredToken)
	require.NotErrorIs(t, err, ErrInvalidToken)
	require.Equal(t, 1, fake.calls)

	status, msg := authFailure(err)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Forbidden: Token expired.", msg)
}

func TestAuthFailure(t *testing.T) {
	status, msg := authFailure(ErrMissingToken)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Unauthorized: No bearer token provided.", msg)

	status, msg = authFailure(ErrMalformedToken)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Forbidden: Token malformed.", msg)

	status, msg = authFailure(ErrExpiredToken)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Forbidden: Token expired.", msg)

	status, msg = authFailure(ErrInvalidToken)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Forbidden: Invalid or expired token.", msg)
}

func TestFirebaseAuth_Middleware(t *testing.T) {
	fake := &fakeIDVerifier{token: &auth.Token{UID: "uid-1", Claims: map[string]interface{}{"email": "jane@camp.example.com"}}}
	var gotUID, gotEmail string
	h := FirebaseAuth(NewTokenVerifier(fake), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUID = GetUserID(r.Context())
		gotEmail = GetUserEmail(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("passes identity on", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/users/profile/me", nil)
		req.Header.Set("Authorization", "Bearer "+signed(t, time.Now().Add(time.Hour)))
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, "uid-1", gotUID)
		require.Equal(t, "jane@camp.example.com", gotEmail)
	})

	t.Run("missing token is 401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/profile/me", nil))

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		var body models.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		require.Equal(t, "Unauthorized: No bearer token provided.", body.Message)
	})

	t.Run("malformed token is 403", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/users/profile/me", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestContextHelpers_Empty(t *testing.T) {
	require.Empty(t, GetUserID(context.Background()))
	require.Empty(t, GetUserEmail(context.Background()))
}
