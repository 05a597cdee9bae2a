package session

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type strategyStub struct {
	issueErr error
	parseFn  func(string) (Claims, error)
}

func (s strategyStub) IssueToken(userID string) (string, error) {
	if s.issueErr != nil {
		return "", s.issueErr
	}
	return "token-" + userID, nil
}

func (s strategyStub) ParseToken(token string) (Claims, error) {
	return s.parseFn(token)
}

func (s strategyStub) TTL() time.Duration { return time.Hour }

func (s strategyStub) Name() string { return "stub" }

func TestManagerResolveExistingToken(t *testing.T) {
	strategy := NewHMACStrategy("secret", Options{TTL: time.Minute})
	userID := uuid.NewString()
	token, err := strategy.IssueToken(userID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	sess, err := NewManager(strategy).Resolve(token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if sess.UserID != userID || sess.Fresh || sess.Token != token {
		t.Fatalf("unexpected session %+v", sess)
	}
}

func TestManagerResolveOpensSessionForMissingOrInvalidToken(t *testing.T) {
	manager := NewManager(NewHMACStrategy("secret", Options{}))
	for _, token := range []string{"", "garbage"} {
		sess, err := manager.Resolve(token)
		if err != nil {
			t.Fatalf("resolve %q: %v", token, err)
		}
		if !sess.Fresh {
			t.Fatalf("expected fresh session for %q", token)
		}
		if _, err := uuid.Parse(sess.UserID); err != nil {
			t.Fatalf("expected uuid user id, got %q", sess.UserID)
		}
		if sess.Token == "" {
			t.Fatal("expected token for fresh session")
		}
	}
}

func TestManagerResolvePropagatesUnexpectedErrors(t *testing.T) {
	boom := errors.New("boom")
	manager := NewManager(strategyStub{parseFn: func(string) (Claims, error) { return Claims{}, boom }})
	if _, err := manager.Resolve("token"); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestManagerResolveRenewsAgedToken(t *testing.T) {
	strategy := NewHMACStrategy("secret", Options{TTL: 2 * time.Hour})
	issuedAt := time.Now().Add(-90 * time.Minute)
	strategy.now = func() time.Time { return issuedAt }
	userID := uuid.NewString()
	aged, err := strategy.IssueToken(userID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	strategy.now = time.Now

	sess, err := NewManager(strategy).Resolve(aged)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if sess.UserID != userID || !sess.Renewed || sess.Fresh || sess.Token == aged {
		t.Fatalf("expected renewed token for the same user, got %+v", sess)
	}
	claims, err := strategy.ParseToken(sess.Token)
	if err != nil || claims.UserID != userID {
		t.Fatalf("unexpected renewed claims %+v %v", claims, err)
	}
	if time.Until(claims.ExpiresAt) < 119*time.Minute {
		t.Fatalf("expected renewed token to carry a full lifetime, got %s", claims.ExpiresAt)
	}
}

func TestManagerResolveRenewIssueError(t *testing.T) {
	boom := errors.New("boom")
	manager := NewManager(strategyStub{
		issueErr: boom,
		parseFn: func(string) (Claims, error) {
			return Claims{UserID: "u1", ExpiresAt: time.Now().Add(time.Minute)}, nil
		},
	})
	if _, err := manager.Resolve("token"); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestManagerOpenIssueError(t *testing.T) {
	boom := errors.New("boom")
	manager := NewManager(strategyStub{issueErr: boom})
	if _, err := manager.Open(); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}
