package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/evalmate/evalmate/internal/rbac"
	"github.com/evalmate/evalmate/internal/session"
)

func testService(t *testing.T) *AuthService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	users := map[string]Credential{
		"grace": {PassHash: string(hash), Role: "grader"},
	}
	return NewAuthService("test-hmac", users, session.NewStore(time.Hour))
}

func TestLoginIssuesTokenAndSession(t *testing.T) {
	svc := testService(t)

	body, _ := json.Marshal(map[string]string{"username": "grace", "password": "s3cret"})
	rec := httptest.NewRecorder()
	LoginHandler(svc)(rec, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["access_token"])
	assert.NotEmpty(t, resp["session_token"])

	claims, err := svc.Parse(resp["access_token"])
	require.NoError(t, err)
	assert.Equal(t, "grace", claims.Sub)
	assert.Equal(t, "grader", claims.Role)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	svc := testService(t)
	body, _ := json.Marshal(map[string]string{"username": "grace", "password": "wrong"})
	rec := httptest.NewRecorder()
	LoginHandler(svc)(rec, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddlewareAttachesSubjectAndRole(t *testing.T) {
	svc := testService(t)
	tok, err := svc.IssueJWT("grace", "grader")
	require.NoError(t, err)

	var gotSub, gotRole string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSub = SubjectFromContext(r.Context())
		gotRole = rbac.RoleFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/rubrics", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	JWTMiddleware(svc)(next).ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "grace", gotSub)
	assert.Equal(t, "grader", gotRole)
}

func TestJWTMiddlewareRejectsMissingOrBadToken(t *testing.T) {
	svc := testService(t)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})

	rec := httptest.NewRecorder()
	JWTMiddleware(svc)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	JWTMiddleware(svc)(next).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
