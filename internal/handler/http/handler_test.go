package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/storefront/internal/auth"
	storeHandler "github.com/vasiliy-maslov/storefront/internal/handler/http"
)

const testSecret = "handler-test-secret"

var verifier = auth.NewVerifier(testSecret)

type routesRegistrar interface {
	RegisterRoutes(router chi.Router, authn storeHandler.Middleware)
}

func newRouter(handlers ...routesRegistrar) chi.Router {
	router := chi.NewRouter()
	for _, h := range handlers {
		h.RegisterRoutes(router, verifier.Authenticate)
	}
	return router
}

func tokenFor(t *testing.T, id auth.Identity) string {
	t.Helper()
	token, err := verifier.Issue(id, time.Hour)
	require.NoError(t, err)
	return token
}

func buyer() auth.Identity {
	return auth.Identity{UserID: uuid.Must(uuid.NewV4()), Email: "buyer@example.com"}
}

func admin() auth.Identity {
	return auth.Identity{UserID: uuid.Must(uuid.NewV4()), Email: "admin@example.com", IsAdmin: true}
}

// do sends body as JSON; a string body is sent verbatim.
func do(t *testing.T, router http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var payload []byte
	switch b := body.(type) {
	case nil:
	case string:
		payload = []byte(b)
	default:
		var err error
		payload, err = json.Marshal(b)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), "Failed to decode response body: %s", rr.Body.String())
	return v
}
