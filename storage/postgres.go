package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/Didrablian/deceptivemind-sub000/domain"
)

const notifyChannel = "session_changed"

// PostgresStore keeps one JSONB document per session with a version column
// for optimistic concurrency. Change push rides on LISTEN/NOTIFY so
// subscribers see commits from every worker, not just this process.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  zerolog.Logger

	mu      sync.RWMutex
	subs    map[string]map[int]func(domain.Session)
	nextSub int
}

func NewPostgresStore(ctx context.Context, connString string, log zerolog.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{
		pool: pool,
		log:  log,
		subs: make(map[string]map[int]func(domain.Session)),
	}
	go s.listen(ctx)
	return s, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Create(ctx context.Context, doc domain.Session) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO sessions (id, code, doc, passcode_hash, version, open, phase_deadline, created_at)
		 VALUES ($1, $2, $3, $4, 1, $5, $6, $7)`,
		doc.Id, doc.Code, body, doc.PasscodeHash, openFor(doc), deadlineFor(doc), doc.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// join-code collision; callers treat it like any other write failure
			return fmt.Errorf("%w: duplicate session code", domain.UnexpectedDatabaseError)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (domain.Session, error) {
	doc, _, err := s.read(ctx, "id", id)
	return doc, err
}

func (s *PostgresStore) GetByCode(ctx context.Context, code string) (domain.Session, error) {
	doc, _, err := s.read(ctx, "code", code)
	return doc, err
}

func (s *PostgresStore) read(ctx context.Context, column, key string) (domain.Session, int64, error) {
	var body []byte
	var hash string
	var version int64
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT doc, passcode_hash, version FROM sessions WHERE %s = $1`, column), key)
	if err := row.Scan(&body, &hash, &version); err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return domain.Session{}, 0, domain.ErrSessionNotFound
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return domain.Session{}, 0, err
		default:
			return domain.Session{}, 0, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
		}
	}
	var doc domain.Session
	if err := json.Unmarshal(body, &doc); err != nil {
		return domain.Session{}, 0, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}
	doc.PasscodeHash = hash
	return doc, version, nil
}

func (s *PostgresStore) Transaction(ctx context.Context, id string, fn func(*domain.Session) error) (domain.Session, error) {
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		doc, version, err := s.read(ctx, "id", id)
		if err != nil {
			return domain.Session{}, err
		}

		err = fn(&doc)
		destroy := errors.Is(err, domain.ErrDestroySession)
		if err != nil && !destroy {
			return domain.Session{}, err
		}

		var tag pgconn.CommandTag
		if destroy {
			tag, err = s.pool.Exec(ctx,
				`DELETE FROM sessions WHERE id = $1 AND version = $2`, id, version)
		} else {
			var body []byte
			body, err = json.Marshal(doc)
			if err != nil {
				return domain.Session{}, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
			}
			tag, err = s.pool.Exec(ctx,
				`UPDATE sessions
				 SET doc = $2, passcode_hash = $3, version = version + 1, open = $4, phase_deadline = $5
				 WHERE id = $1 AND version = $6`,
				id, body, doc.PasscodeHash, openFor(doc), deadlineFor(doc), version)
		}
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return domain.Session{}, err
			}
			return domain.Session{}, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
		}
		if tag.RowsAffected() == 0 {
			// a concurrent writer won; retry against the fresh document
			continue
		}

		if destroy {
			// the row is gone, so deliver the final document locally and
			// let other workers drop their subscribers via the notify
			s.dispatch(id, doc, true)
		}
		if _, err := s.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, id); err != nil {
			s.log.Warn().Err(err).Str("session", id).Msg("change notify failed")
		}
		return doc, nil
	}
	return domain.Session{}, domain.ErrTransactionConflict
}

func (s *PostgresStore) Subscribe(id string, fn func(domain.Session)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs[id] == nil {
		s.subs[id] = make(map[int]func(domain.Session))
	}
	key := s.nextSub
	s.nextSub++
	s.subs[id][key] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if listeners, ok := s.subs[id]; ok {
			delete(listeners, key)
			if len(listeners) == 0 {
				delete(s.subs, id)
			}
		}
	}
}

func (s *PostgresStore) ListOpen(ctx context.Context) ([]domain.Session, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT doc FROM sessions WHERE open ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}
	defer rows.Close()

	out := []domain.Session{}
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
		}
		var doc domain.Session
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Expired(ctx context.Context, now time.Time, lobbyCutoff time.Time) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM sessions
		 WHERE (phase_deadline IS NOT NULL AND phase_deadline <= $1)
		    OR (doc->>'phase' = 'lobby' AND created_at < $2)`,
		now, lobbyCutoff)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// listen holds a dedicated connection on the notify channel and fans
// committed changes out to this process's subscribers.
func (s *PostgresStore) listen(ctx context.Context) {
	for {
		if err := s.listenOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn().Err(err).Msg("notify listener lost, reconnecting")
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *PostgresStore) listenOnce(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return err
	}
	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		id := notification.Payload

		s.mu.RLock()
		watched := len(s.subs[id]) > 0
		s.mu.RUnlock()
		if !watched {
			continue
		}

		doc, _, err := s.read(ctx, "id", id)
		if errors.Is(err, domain.ErrSessionNotFound) {
			// deleted elsewhere; local deletes already delivered the final doc
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			continue
		}
		if err != nil {
			s.log.Warn().Err(err).Str("session", id).Msg("change fan-out read failed")
			continue
		}
		s.dispatch(id, doc, false)
	}
}

func (s *PostgresStore) dispatch(id string, doc domain.Session, final bool) {
	s.mu.Lock()
	listeners := make([]func(domain.Session), 0, len(s.subs[id]))
	for _, fn := range s.subs[id] {
		listeners = append(listeners, fn)
	}
	if final {
		delete(s.subs, id)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(doc.Clone())
	}
}

func openFor(doc domain.Session) bool {
	return doc.Phase == domain.PhaseLobby && !doc.Private
}

func deadlineFor(doc domain.Session) *time.Time {
	if deadline, ok := doc.Deadline(); ok {
		return &deadline
	}
	return nil
}
