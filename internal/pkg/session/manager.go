package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Session is the explicit per-user context passed to use cases.
type Session struct {
	UserID string
	Token  string
	// Fresh marks a newly opened session, Renewed a re-issued token for an
	// existing one. Either way the client must store Token.
	Fresh   bool
	Renewed bool
}

// Manager resolves existing sessions and opens anonymous ones.
type Manager struct {
	strategy Strategy
	now      func() time.Time
}

// NewManager constructs Manager over a token strategy.
func NewManager(strategy Strategy) *Manager {
	return &Manager{strategy: strategy, now: time.Now}
}

// Resolve returns the session carried by token, opening a new one when the token
// is empty or no longer valid. Tokens past half their lifetime are re-issued
// for the same user.
func (m *Manager) Resolve(token string) (Session, error) {
	if token != "" {
		claims, err := m.strategy.ParseToken(token)
		if err == nil {
			if claims.ExpiresAt.Sub(m.now()) >= m.strategy.TTL()/2 {
				return Session{UserID: claims.UserID, Token: token}, nil
			}
			renewed, err := m.strategy.IssueToken(claims.UserID)
			if err != nil {
				return Session{}, err
			}
			return Session{UserID: claims.UserID, Token: renewed, Renewed: true}, nil
		}
		if !errors.Is(err, ErrInvalidToken) {
			return Session{}, err
		}
	}
	return m.Open()
}

// Open creates a session for a newly generated user identifier.
func (m *Manager) Open() (Session, error) {
	userID := uuid.NewString()
	token, err := m.strategy.IssueToken(userID)
	if err != nil {
		return Session{}, err
	}
	return Session{UserID: userID, Token: token, Fresh: true}, nil
}
