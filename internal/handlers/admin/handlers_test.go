package admin

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"realestate/internal/models"
	"realestate/internal/services/auth"
	"realestate/internal/services/docstore"
	"realestate/internal/services/storage"
)

type fixture struct {
	h     http.Handler
	files *storage.Storage
	admin models.User
	bob   models.User
}

func setup(t *testing.T) *fixture {
	t.Helper()

	files, err := storage.New(t.TempDir())
	require.NoError(t, err)
	ds := docstore.NewFileStore(files)

	tokens, err := auth.NewTokenService("test-secret", "realestate", time.Hour)
	require.NoError(t, err)
	svc := auth.NewService(ds, tokens)
	svc.SetHashCost(bcrypt.MinCost)

	ctx := t.Context()
	admin, err := svc.Register(ctx, "root@example.com", "password123", "Root")
	require.NoError(t, err)
	bob, err := svc.Register(ctx, "bob@example.com", "password123", "Bob")
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, admin.Role)

	Initialize(ds, svc, files)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if uid := r.Header.Get("X-Test-UID"); uid != "" {
				p := auth.Principal{UID: uid, Role: r.Header.Get("X-Test-Role")}
				r = r.WithContext(auth.ContextWithPrincipal(r.Context(), p))
			}
			next.ServeHTTP(w, r)
		})
	})
	RegisterRoutes(r)
	return &fixture{h: r, files: files, admin: admin, bob: bob}
}

func (f *fixture) do(u models.User, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if u.ID != "" {
		req.Header.Set("X-Test-UID", u.ID)
		req.Header.Set("X-Test-Role", u.Role)
	}
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)
	return rec
}

func TestAdminOnly(t *testing.T) {
	f := setup(t)

	for _, path := range []string{"/api/admin/agents", "/api/admin/users", "/api/admin/backup"} {
		assert.Equal(t, http.StatusUnauthorized, f.do(models.User{}, http.MethodGet, path, "").Code, path)
		assert.Equal(t, http.StatusForbidden, f.do(f.bob, http.MethodGet, path, "").Code, path)
	}
}

func TestAgentLifecycle(t *testing.T) {
	f := setup(t)

	rec := f.do(f.admin, http.MethodPost, "/api/admin/agents",
		`{"name":"Bob Realtor","email":"BOB@example.com","agency":"Acme Homes","license":"TX-123","user_id":"`+f.bob.ID+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var agent models.Agent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &agent))
	assert.Equal(t, "bob@example.com", agent.Email)

	user, err := authSvc.GetUser(t.Context(), f.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAgent, user.Role, "linked user is promoted")

	rec = f.do(f.admin, http.MethodGet, "/api/admin/agents/"+agent.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(f.admin, http.MethodGet, "/api/admin/agents", "")
	var agents []models.Agent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &agents))
	assert.Len(t, agents, 1)

	assert.Equal(t, http.StatusNoContent, f.do(f.admin, http.MethodDelete, "/api/admin/agents/"+agent.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(f.admin, http.MethodGet, "/api/admin/agents/"+agent.ID, "").Code)

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name string
			body string
		}{
			{"missing name", `{"email":"a@example.com"}`},
			{"bad email", `{"name":"A","email":"nope"}`},
			{"unknown user", `{"name":"A","email":"a@example.com","user_id":"ghost"}`},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				assert.Equal(t, http.StatusBadRequest, f.do(f.admin, http.MethodPost, "/api/admin/agents", tt.body).Code)
			})
		}
	})
}

func TestSetRole(t *testing.T) {
	f := setup(t)

	rec := f.do(f.admin, http.MethodPut, "/api/admin/users/"+f.bob.ID+"/role", `{"role":"agent"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var profile models.UserProfile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, models.RoleAgent, profile.Role)
	assert.NotContains(t, rec.Body.String(), "password")

	assert.Equal(t, http.StatusBadRequest, f.do(f.admin, http.MethodPut, "/api/admin/users/"+f.bob.ID+"/role", `{"role":"king"}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(f.admin, http.MethodPut, "/api/admin/users/"+f.admin.ID+"/role", `{"role":"user"}`).Code)
	assert.Equal(t, http.StatusNotFound, f.do(f.admin, http.MethodPut, "/api/admin/users/ghost/role", `{"role":"user"}`).Code)
}

func TestBackup(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.files.EnableEncryption("backup-password"))

	rec := f.do(f.admin, http.MethodGet, "/api/admin/backup", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "realestate_backup_")

	body := rec.Body.Bytes()
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	require.NoError(t, err)

	var names []string
	for _, zf := range zr.File {
		names = append(names, zf.Name)
		rc, err := zf.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		assert.False(t, bytes.HasPrefix(data, []byte("age-encryption.org")), "%s is decrypted", zf.Name)
	}
	assert.Len(t, names, 2, "two user documents")
	for _, n := range names {
		assert.True(t, strings.HasPrefix(n, "users/"), n)
		assert.NotContains(t, n, ".encrypt")
	}
}
