package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/idtoken"

	"github.com/vnkhanh/surveyflow/models"
	"github.com/vnkhanh/surveyflow/store"
	"github.com/vnkhanh/surveyflow/utils"
)

// Credentials is a login attempt: either an email/password pair or a Google
// ID token obtained by the admin front end.
type Credentials struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	GoogleIDToken string `json:"google_id_token"`
}

type Authenticator interface {
	Authenticate(ctx context.Context, cred Credentials) (models.User, error)
}

// PasswordAuthenticator accepts the single configured admin account.
type PasswordAuthenticator struct {
	Email        string
	Name         string
	PasswordHash string
}

func (a PasswordAuthenticator) Authenticate(_ context.Context, cred Credentials) (models.User, error) {
	if !strings.EqualFold(strings.TrimSpace(cred.Email), a.Email) {
		return models.User{}, ErrUnauthorized
	}
	if err := utils.CheckPassword(a.PasswordHash, cred.Password); err != nil {
		if errors.Is(err, utils.ErrPasswordMismatch) {
			return models.User{}, ErrUnauthorized
		}
		return models.User{}, fmt.Errorf("admin password hash: %w", err)
	}
	return models.User{
		ID:    "admin",
		Name:  a.Name,
		Email: a.Email,
		Role:  models.RoleAdmin,
	}, nil
}

// TokenValidator checks a Google ID token for the given audience.
type TokenValidator func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// GoogleAuthenticator accepts Google accounts, optionally restricted to an
// allow-list of emails.
type GoogleAuthenticator struct {
	ClientID      string
	AllowedEmails []string
	Validate      TokenValidator
}

func NewGoogleAuthenticator(clientID string, allowed []string) *GoogleAuthenticator {
	return &GoogleAuthenticator{ClientID: clientID, AllowedEmails: allowed, Validate: idtoken.Validate}
}

func (g *GoogleAuthenticator) Authenticate(ctx context.Context, cred Credentials) (models.User, error) {
	payload, err := g.Validate(ctx, cred.GoogleIDToken, g.ClientID)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	email, _ := payload.Claims["email"].(string)
	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		return models.User{}, ErrUnauthorized
	}
	if email == "" || !g.allowed(email) {
		return models.User{}, ErrUnauthorized
	}

	name, _ := payload.Claims["name"].(string)
	picture, _ := payload.Claims["picture"].(string)
	return models.User{
		ID:      payload.Subject,
		Name:    name,
		Email:   email,
		Picture: picture,
		Role:    models.RoleAdmin,
	}, nil
}

func (g *GoogleAuthenticator) allowed(email string) bool {
	if len(g.AllowedEmails) == 0 {
		return true
	}
	for _, e := range g.AllowedEmails {
		if strings.EqualFold(e, email) {
			return true
		}
	}
	return false
}

type AuthConfig struct {
	Secret   string
	TTL      time.Duration
	Password Authenticator
	Google   Authenticator
}

// AuthService issues and verifies admin session tokens. One session is
// active at a time; logging in again replaces it.
type AuthService struct {
	store    store.Store
	secret   []byte
	ttl      time.Duration
	password Authenticator
	google   Authenticator
	now      func() time.Time

	mu sync.Mutex
}

func NewAuthService(st store.Store, cfg AuthConfig) *AuthService {
	return &AuthService{
		store:    st,
		secret:   []byte(cfg.Secret),
		ttl:      cfg.TTL,
		password: cfg.Password,
		google:   cfg.Google,
		now:      time.Now,
	}
}

// Login authenticates cred and returns a signed token with its session.
func (a *AuthService) Login(ctx context.Context, cred Credentials) (string, models.Session, error) {
	var auth Authenticator
	switch {
	case cred.GoogleIDToken != "":
		auth = a.google
	case cred.Email != "":
		auth = a.password
	default:
		return "", models.Session{}, invalid("credentials", "email and password or google_id_token required")
	}
	if auth == nil {
		return "", models.Session{}, ErrUnauthorized
	}

	user, err := auth.Authenticate(ctx, cred)
	if err != nil {
		return "", models.Session{}, err
	}

	token, claims, err := utils.GenerateToken(a.secret, user.ID, user.Email, user.Role, a.now(), a.ttl)
	if err != nil {
		return "", models.Session{}, err
	}
	session := models.Session{
		User:      user,
		TokenID:   claims.ID,
		IssuedAt:  claims.IssuedAt.Time.UTC(),
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := store.SetJSON(ctx, a.store, store.KeySession, session); err != nil {
		return "", models.Session{}, fmt.Errorf("save session: %w", err)
	}
	return token, session, nil
}

// Verify returns the session of a valid token. Tokens of a replaced or
// logged-out session are rejected.
func (a *AuthService) Verify(ctx context.Context, token string) (models.Session, error) {
	claims, err := utils.VerifyToken(a.secret, token)
	if err != nil {
		return models.Session{}, ErrUnauthorized
	}
	session, ok, err := a.Current(ctx)
	if err != nil {
		return models.Session{}, err
	}
	if !ok || session.TokenID != claims.ID {
		return models.Session{}, ErrUnauthorized
	}
	return session, nil
}

// Current returns the stored session, if any.
func (a *AuthService) Current(ctx context.Context) (models.Session, bool, error) {
	var session models.Session
	found, err := store.GetJSON(ctx, a.store, store.KeySession, &session)
	if err != nil {
		return models.Session{}, false, err
	}
	if !found || !a.now().Before(session.ExpiresAt) {
		return models.Session{}, false, nil
	}
	return session, true, nil
}

func (a *AuthService) Logout(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.store.Remove(ctx, store.KeySession); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// IsUnauthorized reports whether err means the caller is not logged in.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
