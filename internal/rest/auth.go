package rest

import (
	"crypto/subtle"
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Auth errors.
var (
	ErrInvalidCredentials = errors.New("rest: invalid credentials")
)

// Authenticator checks Basic auth credentials against a bcrypt hash.
type Authenticator struct {
	mu       sync.RWMutex
	username string
	hash     []byte
}

// NewAuthenticator creates an authenticator. An empty username or hash
// disables authentication.
func NewAuthenticator(username, passwordHash string) *Authenticator {
	a := &Authenticator{}
	a.SetCredentials(username, passwordHash)
	return a
}

// SetCredentials replaces the credentials at runtime.
func (a *Authenticator) SetCredentials(username, passwordHash string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.username = username
	a.hash = []byte(passwordHash)
}

// Enabled reports whether requests must authenticate.
func (a *Authenticator) Enabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.username != "" && len(a.hash) > 0
}

// Verify checks username and password.
func (a *Authenticator) Verify(username, password string) error {
	a.mu.RLock()
	wantUser, hash := a.username, a.hash
	a.mu.RUnlock()

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(wantUser)) == 1
	// Always run bcrypt so a wrong username costs the same as a wrong password.
	passErr := bcrypt.CompareHashAndPassword(hash, []byte(password))
	if !userOK || passErr != nil {
		return ErrInvalidCredentials
	}
	return nil
}
