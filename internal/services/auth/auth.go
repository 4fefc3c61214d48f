// Package auth manages marketplace accounts and sessions: bcrypt password
// hashes in the users collection and signed session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"realestate/internal/models"
	"realestate/internal/services/docstore"
)

// UsersCollection holds user documents
const UsersCollection = "users"

const minPasswordLength = 8

var (
	// ErrInvalidCredentials is returned for an unknown email or wrong password
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUnauthorized is returned for a missing, invalid, expired or revoked token
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the principal lacks a required role
	ErrForbidden = errors.New("forbidden")

	// ErrEmailTaken is returned when registering an email already in use
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidInput is returned for malformed registration or role input
	ErrInvalidInput = errors.New("invalid input")
)

// EventType distinguishes session events
type EventType string

const (
	EventLogin  EventType = "login"
	EventLogout EventType = "logout"
)

// Event is delivered to subscribers on login and logout
type Event struct {
	Type      EventType
	Principal Principal
	At        time.Time
}

// Service is the auth provider
type Service struct {
	store  docstore.Store
	tokens *TokenService
	cost   int

	mu          sync.Mutex // serializes registration
	revokedMu   sync.Mutex
	revoked     map[string]time.Time // token id -> expiry
	subsMu      sync.RWMutex
	subscribers map[int]func(Event)
	nextSub     int
	now         func() time.Time
}

// NewService creates the auth provider over a document store
func NewService(store docstore.Store, tokens *TokenService) *Service {
	return &Service{
		store:       store,
		tokens:      tokens,
		cost:        bcrypt.DefaultCost,
		revoked:     make(map[string]time.Time),
		subscribers: make(map[int]func(Event)),
		now:         time.Now,
	}
}

// SetHashCost changes the bcrypt cost for new password hashes
func (s *Service) SetHashCost(cost int) {
	s.cost = cost
}

// Register creates an account. The first account becomes an admin.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (models.User, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return models.User{}, fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return models.User{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return models.User{}, fmt.Errorf("hashing password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.List(ctx, UsersCollection, nil)
	if err != nil {
		return models.User{}, fmt.Errorf("listing users: %w", err)
	}
	for _, doc := range existing {
		if e, _ := doc["email"].(string); e == email {
			return models.User{}, ErrEmailTaken
		}
	}

	role := models.RoleUser
	if len(existing) == 0 {
		role = models.RoleAdmin
	}
	if strings.TrimSpace(displayName) == "" {
		displayName = strings.SplitN(email, "@", 2)[0]
	}

	doc, err := docstore.Encode(models.User{
		Email:        email,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: string(hash),
		Role:         role,
	})
	if err != nil {
		return models.User{}, err
	}
	delete(doc, docstore.FieldID)

	created, err := s.store.Create(ctx, UsersCollection, doc)
	if err != nil {
		return models.User{}, fmt.Errorf("creating user: %w", err)
	}

	var user models.User
	if err := docstore.Decode(created, &user); err != nil {
		return models.User{}, err
	}
	slog.Info("user registered", "uid", user.ID, "role", user.Role)
	return user, nil
}

// Login verifies credentials and issues a session token
func (s *Service) Login(ctx context.Context, email, password string) (string, Principal, error) {
	user, err := s.findByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return "", Principal{}, ErrInvalidCredentials
		}
		return "", Principal{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", Principal{}, ErrInvalidCredentials
	}

	token, p, err := s.tokens.Generate(user)
	if err != nil {
		return "", Principal{}, err
	}
	s.publish(Event{Type: EventLogin, Principal: p, At: s.now()})
	return token, p, nil
}

// Logout revokes the token until it would have expired anyway
func (s *Service) Logout(ctx context.Context, token string) error {
	p, err := s.Authenticate(ctx, token)
	if err != nil {
		return err
	}

	s.revokedMu.Lock()
	now := s.now()
	for id, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, id)
		}
	}
	s.revoked[p.tokenID] = p.expiresAt
	s.revokedMu.Unlock()

	s.publish(Event{Type: EventLogout, Principal: p, At: now})
	return nil
}

// Authenticate validates a token. The role comes from the stored user so
// role changes apply to existing sessions.
func (s *Service) Authenticate(ctx context.Context, token string) (Principal, error) {
	p, err := s.tokens.Validate(token)
	if err != nil {
		return Principal{}, err
	}

	s.revokedMu.Lock()
	_, revoked := s.revoked[p.tokenID]
	s.revokedMu.Unlock()
	if revoked {
		return Principal{}, fmt.Errorf("%w: token revoked", ErrUnauthorized)
	}

	user, err := s.GetUser(ctx, p.UID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Principal{}, fmt.Errorf("%w: unknown user", ErrUnauthorized)
		}
		return Principal{}, err
	}
	p.Role = user.Role
	p.Email = user.Email
	return p, nil
}

// GetUser loads a user by id
func (s *Service) GetUser(ctx context.Context, uid string) (models.User, error) {
	doc, err := s.store.Get(ctx, UsersCollection, uid)
	if err != nil {
		return models.User{}, err
	}
	var user models.User
	if err := docstore.Decode(doc, &user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// ListUsers returns every account
func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	docs, err := s.store.List(ctx, UsersCollection, nil)
	if err != nil {
		return nil, err
	}
	return docstore.DecodeAll[models.User](docs)
}

// SetRole changes a user's role
func (s *Service) SetRole(ctx context.Context, uid, role string) (models.User, error) {
	if !models.ValidRole(role) {
		return models.User{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	doc, err := s.store.Update(ctx, UsersCollection, uid, docstore.Document{"role": role})
	if err != nil {
		return models.User{}, err
	}
	var user models.User
	if err := docstore.Decode(doc, &user); err != nil {
		return models.User{}, err
	}
	slog.Info("user role changed", "uid", uid, "role", role)
	return user, nil
}

// Subscribe registers fn for login and logout events. The returned function
// removes the subscription.
func (s *Service) Subscribe(fn func(Event)) func() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		delete(s.subscribers, id)
	}
}

func (s *Service) publish(e Event) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, fn := range s.subscribers {
		fn(e)
	}
}

func (s *Service) findByEmail(ctx context.Context, email string) (models.User, error) {
	docs, err := s.store.List(ctx, UsersCollection, docstore.Filter{"email": email})
	if err != nil {
		return models.User{}, fmt.Errorf("finding user: %w", err)
	}
	if len(docs) == 0 {
		return models.User{}, docstore.ErrNotFound
	}
	var user models.User
	if err := docstore.Decode(docs[0], &user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
