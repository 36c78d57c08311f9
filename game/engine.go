package game

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Didrablian/deceptivemind-sub000/domain"
)

// PasscodeHasher protects private-session passcodes.
type PasscodeHasher interface {
	Hash(passcode string) string
	Compare(hash, passcode string) bool
}

// lobbyTTL is how long an unstarted lobby may sit idle before the sweep
// deletes it.
const lobbyTTL = time.Hour

// Engine is the authoritative session engine. It is the only stateful
// component: every mutation it makes is a transaction against the session
// store, so concurrent actors either serialize cleanly or retry against
// the fresh document.
type Engine struct {
	store    SessionStore
	gen      Generator
	hasher   PasscodeHasher
	variants map[string]Variant
	log      zerolog.Logger

	now func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewEngine(store SessionStore, gen Generator, hasher PasscodeHasher, log zerolog.Logger) *Engine {
	return &Engine{
		store:    store,
		gen:      gen,
		hasher:   hasher,
		variants: Variants(),
		log:      log,
		now:      time.Now,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (e *Engine) variant(name string) (Variant, error) {
	v, ok := e.variants[name]
	if !ok {
		return Variant{}, domain.ErrUnknownVariant
	}
	return v, nil
}

func (e *Engine) machineFor(s *domain.Session) (Machine, error) {
	v, err := e.variant(s.Variant)
	if err != nil {
		return Machine{}, err
	}
	return NewMachine(v), nil
}

// CreateSession writes a new lobby document with the creator as its sole,
// host-flagged player and returns it together with the host's player id.
func (e *Engine) CreateSession(ctx context.Context, variantName, hostName string, private bool, passcode string) (domain.Session, string, error) {
	if _, err := e.variant(variantName); err != nil {
		return domain.Session{}, "", err
	}
	hostName = strings.TrimSpace(hostName)
	if hostName == "" {
		return domain.Session{}, "", domain.ErrUnknownPlayer
	}

	now := e.now()
	hostId := uuid.NewString()
	s := domain.Session{
		Id:      uuid.NewString(),
		Code:    e.newJoinCode(),
		Variant: variantName,
		Phase:   domain.PhaseLobby,
		HostId:  hostId,
		Players: []domain.Player{{
			Id:      hostId,
			Name:    hostName,
			IsHost:  true,
			IsAlive: true,
		}},
		EventLog:  []domain.EventEntry{},
		ChatLog:   []domain.ChatMessage{},
		Private:   private,
		CreatedAt: now,
	}
	if passcode != "" {
		s.Private = true
		s.PasscodeHash = e.hasher.Hash(passcode)
	}
	s.LogEvent(now, "created", fmt.Sprintf("%s opened a %s session", hostName, variantName))

	if err := e.store.Create(ctx, s); err != nil {
		return domain.Session{}, "", err
	}
	e.log.Info().Str("session", s.Id).Str("variant", variantName).Msg("session created")
	return s, hostId, nil
}

// JoinSession adds a player to a lobby. Joining again under the same name
// is idempotent: the existing seat is returned and the roster is unchanged.
func (e *Engine) JoinSession(ctx context.Context, code, playerName, passcode string) (domain.Session, string, error) {
	playerName = strings.TrimSpace(playerName)
	if playerName == "" {
		return domain.Session{}, "", domain.ErrUnknownPlayer
	}
	found, err := e.store.GetByCode(ctx, code)
	if err != nil {
		return domain.Session{}, "", err
	}

	var playerId string
	s, err := e.store.Transaction(ctx, found.Id, func(s *domain.Session) error {
		// Passcode before everything else: the name match must never hand
		// out a seated player's id to a caller who cannot open the door.
		if s.PasscodeHash != "" && !e.hasher.Compare(s.PasscodeHash, passcode) {
			return domain.ErrInvalidPasscode
		}
		for _, p := range s.Players {
			if strings.EqualFold(p.Name, playerName) {
				playerId = p.Id
				return nil
			}
		}
		if s.Phase != domain.PhaseLobby {
			return domain.ErrAlreadyStarted
		}
		v, err := e.variant(s.Variant)
		if err != nil {
			return err
		}
		if len(s.Players) >= v.MaxPlayers {
			return domain.ErrSessionFull
		}
		playerId = uuid.NewString()
		s.Players = append(s.Players, domain.Player{
			Id:      playerId,
			Name:    playerName,
			IsAlive: true,
		})
		s.LogEvent(e.now(), "joined", fmt.Sprintf("%s joined the session", playerName))
		return nil
	})
	if err != nil {
		return domain.Session{}, "", err
	}
	return s, playerId, nil
}

// LeaveSession removes a player. In the lobby the seat is removed
// physically; once play has started the player is marked dead instead.
// The last player out destroys the session; a departing host hands the
// flag to the next player in list order.
func (e *Engine) LeaveSession(ctx context.Context, id, playerId string) error {
	_, err := e.store.Transaction(ctx, id, func(s *domain.Session) error {
		leaver := s.PlayerById(playerId)
		if leaver == nil {
			return domain.ErrUnknownPlayer
		}
		name := leaver.Name
		now := e.now()

		if s.Phase == domain.PhaseLobby {
			kept := s.Players[:0]
			for _, p := range s.Players {
				if p.Id != playerId {
					kept = append(kept, p)
				}
			}
			s.Players = kept
			if len(s.Players) == 0 {
				return domain.ErrDestroySession
			}
		} else {
			leaver.IsAlive = false
			leaver.IsHost = false
			if s.AliveCount() == 0 {
				return domain.ErrDestroySession
			}
		}
		s.LogEvent(now, "left", fmt.Sprintf("%s left the session", name))

		if s.HostId == playerId {
			e.promoteHost(s)
		}

		if s.Phase != domain.PhaseLobby && s.Winner == nil {
			v, err := e.variant(s.Variant)
			if err != nil {
				return err
			}
			if win := EvaluateWin(s, v, ""); win != nil {
				e.finish(s, win, now)
			}
		}
		return nil
	})
	return err
}

// promoteHost hands the host flag to the first remaining player in list
// order, preferring someone still alive.
func (e *Engine) promoteHost(s *domain.Session) {
	next := -1
	for i, p := range s.Players {
		if p.Id == s.HostId {
			continue
		}
		if p.IsAlive {
			next = i
			break
		}
		if next == -1 {
			next = i
		}
	}
	if next == -1 {
		return
	}
	for i := range s.Players {
		s.Players[i].IsHost = i == next
	}
	s.HostId = s.Players[next].Id
	s.LogEvent(e.now(), "host", fmt.Sprintf("%s is the new host", s.Players[next].Name))
}

// StartGame is host-only. It validates roster bounds, assigns roles, builds
// the board through the content validator, and schedules the first timed
// phase -- all in one transaction.
func (e *Engine) StartGame(ctx context.Context, id, playerId string) error {
	_, err := e.store.Transaction(ctx, id, func(s *domain.Session) error {
		actor := s.PlayerById(playerId)
		if actor == nil {
			return domain.ErrUnknownPlayer
		}
		if !actor.IsHost {
			return domain.ErrNotHost
		}
		if s.Phase != domain.PhaseLobby {
			return domain.ErrAlreadyStarted
		}
		v, err := e.variant(s.Variant)
		if err != nil {
			return err
		}

		e.rngMu.Lock()
		players, err := AssignRoles(s.Players, v, e.rng)
		e.rngMu.Unlock()
		if err != nil {
			return err
		}
		s.Players = players

		if v.BoardSize > 0 {
			board, clues := BuildBoard(ctx, e.gen, v.BoardSize, ClueHolderCount(s.Players, v), "")
			s.Board = board
			s.Players = DistributeClues(s.Players, clues, v)
		}

		now := e.now()
		s.Round = 1
		s.Votes = []domain.Vote{}
		s.ResolvedRounds = map[int]string{}
		if err := NewMachine(v).Advance(s, EventStart, now); err != nil {
			return err
		}
		s.LogEvent(now, "started", fmt.Sprintf("the game started with %d players", len(s.Players)))
		return nil
	})
	if err == nil {
		e.log.Info().Str("session", id).Msg("game started")
	}
	return err
}

// ActionPayload carries the variant-specific arguments of a player action.
type ActionPayload struct {
	TargetId string `json:"targetId,omitempty"`
	Item     string `json:"item,omitempty"`
	Text     string `json:"text,omitempty"`
	Answer   *bool  `json:"answer,omitempty"`
}

// SubmitAction validates and applies one player action transactionally.
// Invalid actions reject with a typed error and change nothing.
func (e *Engine) SubmitAction(ctx context.Context, id, playerId string, action Action, p ActionPayload) (domain.Session, error) {
	return e.store.Transaction(ctx, id, func(s *domain.Session) error {
		actor := s.PlayerById(playerId)
		if actor == nil {
			return domain.ErrUnknownPlayer
		}
		if action == ActionChat {
			return e.applyChat(s, actor, p.Text)
		}
		if s.Winner != nil || s.Phase == domain.PhaseFinished {
			return domain.ErrGameFinished
		}
		v, err := e.variant(s.Variant)
		if err != nil {
			return err
		}
		m := NewMachine(v)
		if err := m.CheckAction(s, actor, action); err != nil {
			return err
		}

		now := e.now()
		switch action {
		case ActionEliminate:
			return e.applyEliminate(s, v, m, actor, p.Item, now)
		case ActionConfirmTarget:
			return e.applyConfirmTarget(s, v, actor, p, now)
		case ActionAccuse:
			return e.applyAccuse(s, m, actor, p.TargetId, now)
		case ActionAsk:
			return AskQuestion(s.Accusation, actor.Id, p.Text)
		case ActionAnswer:
			return e.applyAnswer(s, m, actor, p.Answer, now)
		case ActionVote:
			return e.applyVote(s, v, m, actor, p.TargetId, now)
		case ActionNightKill:
			return e.applyNightKill(s, v, m, actor, p, now)
		default:
			return domain.ErrWrongPhase
		}
	})
}

func (e *Engine) applyChat(s *domain.Session, actor *domain.Player, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	s.ChatLog = append(s.ChatLog, domain.ChatMessage{
		At:       e.now(),
		PlayerId: actor.Id,
		Name:     actor.Name,
		Text:     text,
	})
	return nil
}

func (e *Engine) applyEliminate(s *domain.Session, v Variant, m Machine, actor *domain.Player, item string, now time.Time) error {
	target := findBoardItem(s, item)
	if target == nil || target.IsEliminated {
		return domain.ErrStaleTarget
	}
	target.IsEliminated = true
	s.LogEvent(now, "eliminated", fmt.Sprintf("%s crossed out %q", actor.Name, target.Text))
	if target.IsTarget {
		e.finish(s, &domain.WinResult{
			Winner: v.MinorityName,
			Reason: "the secret word was crossed out",
		}, now)
	}
	return nil
}

func (e *Engine) applyConfirmTarget(s *domain.Session, v Variant, actor *domain.Player, p ActionPayload, now time.Time) error {
	if v.BoardSize > 0 {
		target := findBoardItem(s, p.Item)
		if target == nil || target.IsEliminated {
			return domain.ErrStaleTarget
		}
		if target.IsTarget {
			s.LogEvent(now, "confirmed", fmt.Sprintf("%s named %q as the secret word", actor.Name, target.Text))
			e.finish(s, &domain.WinResult{
				Winner: v.MajorityName,
				Reason: fmt.Sprintf("%s found the secret word", actor.Name),
			}, now)
		} else {
			s.LogEvent(now, "confirmed", fmt.Sprintf("%s guessed %q, which was wrong", actor.Name, target.Text))
			e.finish(s, &domain.WinResult{
				Winner: v.MinorityName,
				Reason: "the communicator named the wrong word",
			}, now)
		}
		return nil
	}

	// Boardless variants confirm a player instead: a correct call unmasks a
	// minority member on the spot, a wrong one costs the caller their own seat.
	target := s.PlayerById(p.TargetId)
	if target == nil || !target.IsAlive || target.Id == actor.Id {
		return domain.ErrStaleTarget
	}
	if target.Role == v.MinorityRole {
		target.IsAlive = false
		s.LogEvent(now, "confirmed", fmt.Sprintf("%s unmasked %s as one of the %s", actor.Name, target.Name, v.MinorityName))
	} else {
		actor.IsAlive = false
		s.LogEvent(now, "confirmed", fmt.Sprintf("%s confirmed %s wrongly and was ruled out of the case", actor.Name, target.Name))
	}
	if win := EvaluateWin(s, v, ""); win != nil {
		e.finish(s, win, now)
	}
	return nil
}

func (e *Engine) applyAccuse(s *domain.Session, m Machine, actor *domain.Player, targetId string, now time.Time) error {
	accused := s.PlayerById(targetId)
	if accused == nil || !accused.IsAlive || accused.Id == actor.Id {
		return domain.ErrStaleTarget
	}
	s.Accusation = &domain.Accusation{
		AccuserId: actor.Id,
		AccusedId: accused.Id,
		Round:     s.Round,
		MadeAt:    now,
	}
	s.LogEvent(now, "accused", fmt.Sprintf("%s accused %s", actor.Name, accused.Name))
	return m.Advance(s, EventAccusationMade, now)
}

func (e *Engine) applyAnswer(s *domain.Session, m Machine, actor *domain.Player, answer *bool, now time.Time) error {
	if answer == nil {
		return domain.ErrNoPendingQuestion
	}
	if err := AnswerQuestion(s.Accusation, actor.Id, *answer); err != nil {
		return err
	}
	// the third answer closes the exchange early
	if len(s.Accusation.Questions) == maxAccusationQuestions {
		return m.Advance(s, EventQuestionsClosed, now)
	}
	return nil
}

func (e *Engine) applyVote(s *domain.Session, v Variant, m Machine, actor *domain.Player, targetId string, now time.Time) error {
	target := s.PlayerById(targetId)
	if target == nil || !target.IsAlive {
		return domain.ErrStaleTarget
	}
	for _, vote := range s.Votes {
		if vote.Round == s.Round && vote.VoterId == actor.Id {
			return nil // first vote stands
		}
	}
	s.Votes = append(s.Votes, domain.Vote{
		VoterId:  actor.Id,
		TargetId: targetId,
		Round:    s.Round,
		CastAt:   now,
	})
	if AllVoted(e.roundVotes(s), s.AliveIds()) {
		return e.resolveRound(s, v, m, now)
	}
	return nil
}

func (e *Engine) applyNightKill(s *domain.Session, v Variant, m Machine, actor *domain.Player, p ActionPayload, now time.Time) error {
	if v.BoardSize > 0 {
		target := findBoardItem(s, p.Item)
		if target == nil || target.IsEliminated {
			return domain.ErrStaleTarget
		}
		target.IsEliminated = true
		s.LogEvent(now, "night", fmt.Sprintf("%q vanished from the board overnight", target.Text))
		if target.IsTarget {
			e.finish(s, &domain.WinResult{
				Winner: v.MinorityName,
				Reason: "the secret word was destroyed in the night",
			}, now)
			return nil
		}
		return e.beginRound(s, m, now)
	}

	victim := s.PlayerById(p.TargetId)
	if victim == nil || !victim.IsAlive || victim.Role == v.MinorityRole {
		return domain.ErrStaleTarget
	}
	victim.IsAlive = false
	s.LogEvent(now, "night", fmt.Sprintf("%s was found dead in the morning", victim.Name))
	if win := EvaluateWin(s, v, ""); win != nil {
		e.finish(s, win, now)
		return nil
	}
	return e.beginRound(s, m, now)
}

// resolveRound commits the current round's vote outcome. It is idempotent:
// a round already present in ResolvedRounds is never resolved twice.
func (e *Engine) resolveRound(s *domain.Session, v Variant, m Machine, now time.Time) error {
	if _, done := s.ResolvedRounds[s.Round]; done {
		return nil
	}

	accuserId := ""
	if s.Accusation != nil && s.Accusation.Round == s.Round {
		accuserId = s.Accusation.AccuserId
	}
	tieBreakerId := ""
	if v.TieBreakRole != "" {
		for _, p := range s.Players {
			if p.IsAlive && p.Role == v.TieBreakRole {
				tieBreakerId = p.Id
				break
			}
		}
	}
	outcome := ResolveVotes(e.roundVotes(s), s.AliveIds(), accuserId, tieBreakerId)
	if s.ResolvedRounds == nil {
		s.ResolvedRounds = map[int]string{}
	}
	s.ResolvedRounds[s.Round] = outcome.EliminatedId

	if err := m.Advance(s, EventVotesResolved, now); err != nil {
		return err
	}

	if outcome.Skipped {
		s.LogEvent(now, "execution", "the vote settled on no one; nobody was executed")
		return nil
	}
	executed := s.PlayerById(outcome.EliminatedId)
	executed.IsAlive = false
	switch {
	case outcome.TieBroken:
		breaker := s.PlayerById(tieBreakerId)
		s.LogEvent(now, "execution", fmt.Sprintf("the vote tied and %s's vote decided against %s", breaker.Name, executed.Name))
	case outcome.Tie:
		s.LogEvent(now, "execution", fmt.Sprintf("the vote tied, so accuser %s was executed instead", executed.Name))
	default:
		s.LogEvent(now, "execution", fmt.Sprintf("%s was executed by vote", executed.Name))
	}

	if win := EvaluateWin(s, v, outcome.EliminatedId); win != nil {
		e.finish(s, win, now)
	}
	return nil
}

// beginRound advances night -> discussion and resets per-round state.
func (e *Engine) beginRound(s *domain.Session, m Machine, now time.Time) error {
	if err := m.Advance(s, EventNightDone, now); err != nil {
		return err
	}
	s.Round++
	s.Accusation = nil
	s.LogEvent(now, "round", fmt.Sprintf("round %d begins", s.Round))
	return nil
}

func (e *Engine) finish(s *domain.Session, win *domain.WinResult, now time.Time) {
	s.Winner = win
	s.Phase = domain.PhaseFinished
	s.PhaseStarted = nil
	s.PhaseSeconds = 0
	s.LogEvent(now, "finished", fmt.Sprintf("%s win: %s", win.Winner, win.Reason))
}

func (e *Engine) roundVotes(s *domain.Session) []domain.Vote {
	votes := make([]domain.Vote, 0, len(s.Votes))
	for _, v := range s.Votes {
		if v.Round == s.Round {
			votes = append(votes, v)
		}
	}
	return votes
}

func findBoardItem(s *domain.Session, text string) *domain.BoardItem {
	for i := range s.Board {
		if strings.EqualFold(s.Board[i].Text, strings.TrimSpace(text)) {
			return &s.Board[i]
		}
	}
	return nil
}

// Session and friends are read-side pass-throughs for the transport layer.
func (e *Engine) Session(ctx context.Context, id string) (domain.Session, error) {
	return e.store.Get(ctx, id)
}

func (e *Engine) SessionByCode(ctx context.Context, code string) (domain.Session, error) {
	return e.store.GetByCode(ctx, code)
}

func (e *Engine) OpenSessions(ctx context.Context) ([]domain.Session, error) {
	return e.store.ListOpen(ctx)
}

func (e *Engine) Watch(id string, fn func(domain.Session)) func() {
	return e.store.Subscribe(id, fn)
}

// TimerTick advances every session whose phase deadline has passed and
// sweeps lobbies idle past their TTL. Each advance re-checks the deadline
// inside its transaction, so a tick that raced a player action is a no-op.
func (e *Engine) TimerTick(ctx context.Context, now time.Time) {
	ids, err := e.store.Expired(ctx, now, now.Add(-lobbyTTL))
	if err != nil {
		e.log.Error().Err(err).Msg("expired scan failed")
		return
	}
	for _, id := range ids {
		if err := e.advanceExpired(ctx, id, now); err != nil {
			e.log.Warn().Err(err).Str("session", id).Msg("timer advance failed")
		}
	}
}

func (e *Engine) advanceExpired(ctx context.Context, id string, now time.Time) error {
	_, err := e.store.Transaction(ctx, id, func(s *domain.Session) error {
		if s.Phase == domain.PhaseLobby {
			if s.CreatedAt.Before(now.Add(-lobbyTTL)) {
				e.log.Info().Str("session", s.Id).Msg("sweeping idle lobby")
				return domain.ErrDestroySession
			}
			return nil
		}
		v, err := e.variant(s.Variant)
		if err != nil {
			return err
		}
		m := NewMachine(v)
		if !m.Expired(s, now) {
			return nil // another writer already advanced the phase
		}
		ev, ok := m.TimeoutEvent(s.Phase)
		if !ok {
			return nil
		}
		return e.applyTimeout(s, v, m, ev, now)
	})
	return err
}

func (e *Engine) applyTimeout(s *domain.Session, v Variant, m Machine, ev Event, now time.Time) error {
	switch ev {
	case EventVotesResolved:
		// unresolved non-voters are simply excluded from the tally
		return e.resolveRound(s, v, m, now)
	case EventNoAccusation:
		s.LogEvent(now, "timeout", "discussion ended with no accusation")
		return m.Advance(s, ev, now)
	case EventNightDone:
		return e.timeoutNight(s, v, m, now)
	default:
		return m.Advance(s, ev, now)
	}
}

// timeoutNight applies the night default when the killer never acted:
// a random selection, never the winning move.
func (e *Engine) timeoutNight(s *domain.Session, v Variant, m Machine, now time.Time) error {
	if v.BoardSize > 0 {
		candidates := []*domain.BoardItem{}
		for i := range s.Board {
			if !s.Board[i].IsEliminated && !s.Board[i].IsTarget {
				candidates = append(candidates, &s.Board[i])
			}
		}
		if len(candidates) > 0 {
			pick := candidates[e.intn(len(candidates))]
			pick.IsEliminated = true
			s.LogEvent(now, "night", fmt.Sprintf("%q vanished from the board overnight", pick.Text))
		}
		return e.beginRound(s, m, now)
	}

	candidates := []*domain.Player{}
	for i := range s.Players {
		if s.Players[i].IsAlive && s.Players[i].Role != v.MinorityRole {
			candidates = append(candidates, &s.Players[i])
		}
	}
	if len(candidates) > 0 {
		victim := candidates[e.intn(len(candidates))]
		victim.IsAlive = false
		s.LogEvent(now, "night", fmt.Sprintf("%s was found dead in the morning", victim.Name))
		if win := EvaluateWin(s, v, ""); win != nil {
			e.finish(s, win, now)
			return nil
		}
	}
	return e.beginRound(s, m, now)
}

func (e *Engine) intn(n int) int {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.Intn(n)
}

const joinCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const joinCodeLength = 6

func (e *Engine) newJoinCode() string {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	code := make([]byte, joinCodeLength)
	for i := range code {
		code[i] = joinCodeChars[e.rng.Intn(len(joinCodeChars))]
	}
	return string(code)
}
