package session

import "time"

// Claims is what a verified token carries.
type Claims struct {
	UserID    string
	ExpiresAt time.Time
}

// Strategy issues and verifies signed session tokens carrying a user identifier.
type Strategy interface {
	IssueToken(userID string) (string, error)
	ParseToken(token string) (Claims, error)
	TTL() time.Duration
	Name() string
}

type Options struct {
	TTL time.Duration
}
