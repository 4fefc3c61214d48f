package admin

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/mail"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	apphttp "realestate/internal/http"
	"realestate/internal/models"
	"realestate/internal/services/auth"
	"realestate/internal/services/docstore"
	"realestate/internal/services/storage"
)

// AgentsCollection holds agent documents
const AgentsCollection = "agents"

var (
	store   docstore.Store
	authSvc *auth.Service
	files   *storage.Storage
)

// Initialize sets up the admin package with required dependencies
func Initialize(ds docstore.Store, a *auth.Service, s *storage.Storage) {
	store = ds
	authSvc = a
	files = s
}

// RegisterRoutes registers all admin routes. Every route requires the admin role.
func RegisterRoutes(r chi.Router) {
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(auth.RequireRole(models.RoleAdmin))

		r.Get("/agents", handleListAgents)
		r.Post("/agents", handleCreateAgent)
		r.Get("/agents/{id}", handleGetAgent)
		r.Delete("/agents/{id}", handleDeleteAgent)

		r.Get("/users", handleListUsers)
		r.Put("/users/{id}/role", handleSetRole)

		r.Get("/backup", HandleBackup)
	})
}

func writeStoreError(w http.ResponseWriter, what string, err error) {
	if errors.Is(err, docstore.ErrNotFound) || errors.Is(err, docstore.ErrInvalidName) {
		apphttp.ErrorJSON(w, what+" not found", http.StatusNotFound)
		return
	}
	apphttp.InternalError(w, "loading "+what, err)
}

// Agents

func handleListAgents(w http.ResponseWriter, r *http.Request) {
	docs, err := store.List(r.Context(), AgentsCollection, nil)
	if err != nil {
		apphttp.InternalError(w, "listing agents", err)
		return
	}
	agents, err := docstore.DecodeAll[models.Agent](docs)
	if err != nil {
		apphttp.InternalError(w, "decoding agents", err)
		return
	}
	if agents == nil {
		agents = []models.Agent{}
	}
	apphttp.WriteJSON(w, http.StatusOK, agents)
}

// AgentRequest is the body for creating an agent. A user_id links the
// agent to an account, which is promoted to the agent role.
type AgentRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Agency  string `json:"agency"`
	License string `json:"license"`
	UserID  string `json:"user_id"`
}

func (req *AgentRequest) agent() (models.Agent, error) {
	a := models.Agent{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:   strings.TrimSpace(req.Phone),
		Agency:  strings.TrimSpace(req.Agency),
		License: strings.TrimSpace(req.License),
		UserID:  strings.TrimSpace(req.UserID),
	}
	if a.Name == "" {
		return a, fmt.Errorf("name is required")
	}
	if _, err := mail.ParseAddress(a.Email); err != nil {
		return a, fmt.Errorf("invalid email address")
	}
	return a, nil
}

// CreateAgent stores an agent, promoting the linked user when there is one
func CreateAgent(ctx context.Context, a models.Agent) (models.Agent, error) {
	if a.UserID != "" {
		user, err := authSvc.GetUser(ctx, a.UserID)
		if err != nil {
			return models.Agent{}, fmt.Errorf("linked user: %w", err)
		}
		if user.Role == models.RoleUser {
			if _, err := authSvc.SetRole(ctx, user.ID, models.RoleAgent); err != nil {
				return models.Agent{}, err
			}
		}
	}

	doc, err := docstore.Encode(a)
	if err != nil {
		return models.Agent{}, err
	}
	delete(doc, docstore.FieldID)
	created, err := store.Create(ctx, AgentsCollection, doc)
	if err != nil {
		return models.Agent{}, fmt.Errorf("creating agent: %w", err)
	}

	var out models.Agent
	if err := docstore.Decode(created, &out); err != nil {
		return models.Agent{}, err
	}
	slog.Info("agent created", "id", out.ID, "user", out.UserID)
	return out, nil
}

func handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var req AgentRequest
	if err := apphttp.DecodeJSON(r, &req); err != nil {
		apphttp.ErrorJSON(w, err.Error(), http.StatusBadRequest)
		return
	}
	a, err := req.agent()
	if err != nil {
		apphttp.ErrorJSON(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := CreateAgent(r.Context(), a)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) || errors.Is(err, docstore.ErrInvalidName) {
			apphttp.ErrorJSON(w, "linked user not found", http.StatusBadRequest)
			return
		}
		apphttp.InternalError(w, "creating agent", err)
		return
	}
	apphttp.WriteJSON(w, http.StatusCreated, created)
}

func handleGetAgent(w http.ResponseWriter, r *http.Request) {
	doc, err := store.Get(r.Context(), AgentsCollection, chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, "agent", err)
		return
	}
	var a models.Agent
	if err := docstore.Decode(doc, &a); err != nil {
		apphttp.InternalError(w, "decoding agent", err)
		return
	}
	apphttp.WriteJSON(w, http.StatusOK, a)
}

func handleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := store.Delete(r.Context(), AgentsCollection, id); err != nil {
		writeStoreError(w, "agent", err)
		return
	}
	slog.Info("agent deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// Users

func handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := authSvc.ListUsers(r.Context())
	if err != nil {
		apphttp.InternalError(w, "listing users", err)
		return
	}
	profiles := make([]models.UserProfile, len(users))
	for i, u := range users {
		profiles[i] = u.Profile()
	}
	apphttp.WriteJSON(w, http.StatusOK, profiles)
}

// RoleRequest is the body for changing a user's role
type RoleRequest struct {
	Role string `json:"role"`
}

func handleSetRole(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "id")
	var req RoleRequest
	if err := apphttp.DecodeJSON(r, &req); err != nil {
		apphttp.ErrorJSON(w, err.Error(), http.StatusBadRequest)
		return
	}

	// An admin demoting themselves could leave no admin behind
	if p, _ := auth.PrincipalFromContext(r.Context()); p.UID == uid && req.Role != models.RoleAdmin {
		apphttp.ErrorJSON(w, "admins cannot change their own role", http.StatusBadRequest)
		return
	}

	user, err := authSvc.SetRole(r.Context(), uid, req.Role)
	switch {
	case err == nil:
		apphttp.WriteJSON(w, http.StatusOK, user.Profile())
	case errors.Is(err, auth.ErrInvalidInput):
		apphttp.ErrorJSON(w, err.Error(), http.StatusBadRequest)
	default:
		writeStoreError(w, "user", err)
	}
}

// Backup

// HandleBackup streams a zip of the data directory. Encrypted files are
// decrypted so the archive restores on any machine.
func HandleBackup(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	count, err := WriteBackup(&buf, files)
	if err != nil {
		apphttp.InternalError(w, "creating backup", err)
		return
	}

	filename := fmt.Sprintf("realestate_backup_%s.zip", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Warn("writing backup response", "error", err)
		return
	}
	slog.Info("backup downloaded", "files", count, "bytes", buf.Len())
}

// WriteBackup writes every data file of s into a zip archive and returns
// the number of files archived
func WriteBackup(dst io.Writer, s *storage.Storage) (int, error) {
	zw := zip.NewWriter(dst)
	count := 0
	err := s.Walk(func(rel string) error {
		// Skip in-flight atomic writes
		if strings.HasSuffix(rel, ".tmp") {
			return nil
		}
		data, err := s.ReadFile(rel)
		if err != nil {
			return fmt.Errorf("reading %s: %w", rel, err)
		}
		f, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		if _, err := f.Write(data); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		zw.Close()
		return 0, err
	}
	return count, zw.Close()
}
