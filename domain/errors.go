package domain

import "errors"

var (
	ErrSessionNotFound   = errors.New("session-not-found")
	ErrSessionFull       = errors.New("session-full")
	ErrAlreadyStarted    = errors.New("already-started")
	ErrNotEnoughPlayers  = errors.New("not-enough-players")
	ErrTooManyPlayers    = errors.New("too-many-players")
	ErrUnknownVariant    = errors.New("unknown-variant")
	ErrUnknownPlayer     = errors.New("unknown-player")
	ErrNotHost           = errors.New("not-host")
	ErrWrongPhase        = errors.New("wrong-phase")
	ErrWrongRole         = errors.New("wrong-role")
	ErrNotAlive          = errors.New("not-alive")
	ErrStaleTarget       = errors.New("stale-target")
	ErrQuestionLimit     = errors.New("question-limit-reached")
	ErrNoPendingQuestion = errors.New("no-pending-question")
	ErrQuestionPending   = errors.New("question-pending")
	ErrEmptyQuestion     = errors.New("empty-question")
	ErrGameFinished      = errors.New("game-finished")
	ErrInvalidPasscode   = errors.New("invalid-passcode")
)

var (
	ErrTransactionConflict  = errors.New("transaction-conflict")
	UnexpectedDatabaseError = errors.New("database-error")

	// ErrDestroySession is returned by a transaction body to request
	// deletion of the document instead of a write.
	ErrDestroySession = errors.New("destroy-session")
)

var (
	TokenError               = errors.New("token-error")
	ErrInvalidSigningAlg     = errors.New("invalid-signing-method")
	ErrExpiredToken          = errors.New("expired-token")
	ErrInvalidTokenSignature = errors.New("invalid-token-signature")
	ErrCorruptedToken        = errors.New("corrupted-token")
)
