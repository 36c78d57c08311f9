package game

import (
	"context"
	"time"

	"github.com/Didrablian/deceptivemind-sub000/domain"
)

// SessionStore holds one document per session and serializes writers
// through optimistic read-modify-write transactions.
type SessionStore interface {
	Create(ctx context.Context, s domain.Session) error
	Get(ctx context.Context, id string) (domain.Session, error)
	GetByCode(ctx context.Context, code string) (domain.Session, error)

	// Transaction re-reads the latest document, applies fn, and commits
	// only if no concurrent writer got there first; conflicting commits
	// retry fn against the fresh document up to a small bound. A fn that
	// returns domain.ErrDestroySession deletes the document instead of
	// writing it. Any other error aborts with no state change.
	Transaction(ctx context.Context, id string, fn func(*domain.Session) error) (domain.Session, error)

	// Subscribe registers a push callback for every committed change to
	// the session, including the final document before deletion. The
	// returned func unsubscribes.
	Subscribe(id string, fn func(domain.Session)) func()

	// ListOpen returns public sessions still accepting players.
	ListOpen(ctx context.Context) ([]domain.Session, error)

	// Expired returns ids of sessions whose phase deadline passed before
	// now, plus lobbies idle since before the cutoff.
	Expired(ctx context.Context, now time.Time, lobbyCutoff time.Time) ([]string, error)
}
