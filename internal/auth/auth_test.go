package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/storefront/internal/auth"
)

func TestVerifier_IssueAndVerify(t *testing.T) {
	v := auth.NewVerifier("test-secret")
	want := auth.Identity{UserID: uuid.Must(uuid.NewV4()), Email: "admin@example.com", IsAdmin: true}

	token, err := v.Issue(want, time.Hour)
	require.NoError(t, err)

	got, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, want, *got)
}

func TestVerifier_Rejects(t *testing.T) {
	v := auth.NewVerifier("test-secret")
	id := auth.Identity{UserID: uuid.Must(uuid.NewV4())}

	expired, err := v.Issue(id, -time.Minute)
	require.NoError(t, err)

	foreign, err := auth.NewVerifier("other-secret").Issue(id, time.Hour)
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, auth.Claims{
		UserID:           id.UserID.String(),
		IsAdmin:          true,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	badUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		UserID:           "not-a-uuid",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":  expired,
		"foreign":  foreign,
		"alg_none": noneAlg,
		"bad_user": badUser,
		"garbage":  "abc.def.ghi",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(token)
			require.ErrorIs(t, err, auth.ErrInvalidToken)
		})
	}
}

func TestMiddleware(t *testing.T) {
	v := auth.NewVerifier("test-secret")
	customer := auth.Identity{UserID: uuid.Must(uuid.NewV4()), Email: "c@example.com"}
	admin := auth.Identity{UserID: uuid.Must(uuid.NewV4()), Email: "a@example.com", IsAdmin: true}

	customerToken, err := v.Issue(customer, time.Hour)
	require.NoError(t, err)
	adminToken, err := v.Issue(admin, time.Hour)
	require.NoError(t, err)

	var seen *auth.Identity
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := v.Authenticate(auth.RequireAdmin(final))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"no_header", "", http.StatusUnauthorized, `{"error":"missing bearer token"}`},
		{"not_bearer", "Basic abc", http.StatusUnauthorized, `{"error":"missing bearer token"}`},
		{"invalid", "Bearer nope", http.StatusUnauthorized, `{"error":"invalid or expired token"}`},
		{"customer", "Bearer " + customerToken, http.StatusForbidden, `{"error":"admin access required"}`},
		{"admin", "Bearer " + adminToken, http.StatusNoContent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantBody == "" {
				require.NotNil(t, seen)
				assert.Equal(t, admin.UserID, seen.UserID)
				return
			}
			assert.JSONEq(t, tt.wantBody, rr.Body.String())
			assert.Nil(t, seen)
		})
	}
}
