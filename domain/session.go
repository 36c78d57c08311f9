package domain

import "time"

type Phase string

const (
	PhaseLobby      Phase = "lobby"
	PhaseRoleReveal Phase = "role-reveal"
	PhaseDiscussion Phase = "discussion"
	PhaseAccusation Phase = "accusation"
	PhaseVoting     Phase = "voting"
	PhaseExecution  Phase = "execution"
	PhaseNight      Phase = "night"
	PhaseFinished   Phase = "finished"
)

type Role string

const (
	// hidden-word variant
	RoleCommunicator Role = "communicator"
	RoleHelper       Role = "helper"
	RoleClueHolder   Role = "clue-holder"
	// imposter variant
	RoleVillager Role = "villager"
	RoleJester   Role = "jester"
	// courtroom variant
	RoleJudge     Role = "judge"
	RoleWitness   Role = "witness"
	RoleSuspect   Role = "suspect"
	RoleDetective Role = "detective"
	// shared by hidden-word and imposter
	RoleImposter Role = "imposter"
)

type Player struct {
	Id      string `json:"id"`
	Name    string `json:"name"`
	Role    Role   `json:"role,omitempty"`
	IsHost  bool   `json:"isHost"`
	IsAlive bool   `json:"isAlive"`
	Clue    string `json:"clue,omitempty"`
}

type BoardItem struct {
	Text         string `json:"text"`
	IsTarget     bool   `json:"isTarget"`
	IsEliminated bool   `json:"isEliminated"`
}

type Vote struct {
	VoterId  string    `json:"voterId"`
	TargetId string    `json:"targetId"`
	Round    int       `json:"round"`
	CastAt   time.Time `json:"castAt"`
}

// Question is a single yes/no exchange inside an accusation. Answer stays
// nil until the accused responds.
type Question struct {
	Text   string `json:"text"`
	Answer *bool  `json:"answer,omitempty"`
}

type Accusation struct {
	AccuserId string     `json:"accuserId"`
	AccusedId string     `json:"accusedId"`
	Round     int        `json:"round"`
	Questions []Question `json:"questions,omitempty"`
	MadeAt    time.Time  `json:"madeAt"`
}

type EventEntry struct {
	At      time.Time `json:"at"`
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
}

type ChatMessage struct {
	At       time.Time `json:"at"`
	PlayerId string    `json:"playerId"`
	Name     string    `json:"name"`
	Text     string    `json:"text"`
}

type WinResult struct {
	Winner string `json:"winner"`
	Reason string `json:"reason"`
}

// Session is the canonical per-game document. Everything the presentation
// layer shows is derived from it; every mutation goes through a store
// transaction.
type Session struct {
	Id           string        `json:"id"`
	Code         string        `json:"code"`
	Variant      string        `json:"variant"`
	Phase        Phase         `json:"phase"`
	Round        int           `json:"round"`
	HostId       string        `json:"hostId"`
	Players      []Player      `json:"players"`
	Board        []BoardItem   `json:"board,omitempty"`
	Votes        []Vote        `json:"votes,omitempty"`
	Accusation   *Accusation   `json:"accusation,omitempty"`
	EventLog     []EventEntry  `json:"eventLog"`
	ChatLog      []ChatMessage `json:"chatLog"`
	PhaseStarted *time.Time    `json:"phaseStarted,omitempty"`
	PhaseSeconds int           `json:"phaseSeconds,omitempty"`
	Winner       *WinResult    `json:"winner,omitempty"`
	Private      bool          `json:"private"`
	PasscodeHash string        `json:"-"`
	CreatedAt    time.Time     `json:"createdAt"`

	// ResolvedRounds maps a round number to the id eliminated by that
	// round's vote ("" when the round resolved without an execution).
	// It makes vote resolution idempotent across transaction retries.
	ResolvedRounds map[int]string `json:"resolvedRounds,omitempty"`
}

func (s *Session) PlayerById(id string) *Player {
	for i := range s.Players {
		if s.Players[i].Id == id {
			return &s.Players[i]
		}
	}
	return nil
}

func (s *Session) AliveCount() int {
	n := 0
	for _, p := range s.Players {
		if p.IsAlive {
			n++
		}
	}
	return n
}

func (s *Session) AliveIds() map[string]bool {
	alive := make(map[string]bool, len(s.Players))
	for _, p := range s.Players {
		if p.IsAlive {
			alive[p.Id] = true
		}
	}
	return alive
}

// Deadline returns the phase deadline, or false when the current phase is
// untimed.
func (s *Session) Deadline() (time.Time, bool) {
	if s.PhaseStarted == nil || s.PhaseSeconds <= 0 {
		return time.Time{}, false
	}
	return s.PhaseStarted.Add(time.Duration(s.PhaseSeconds) * time.Second), true
}

func (s *Session) LogEvent(at time.Time, kind, message string) {
	s.EventLog = append(s.EventLog, EventEntry{At: at, Kind: kind, Message: message})
}

// Clone deep-copies the document so stores can hand out snapshots without
// sharing mutable slices with callers.
func (s Session) Clone() Session {
	out := s
	out.Players = append([]Player(nil), s.Players...)
	out.Board = append([]BoardItem(nil), s.Board...)
	out.Votes = append([]Vote(nil), s.Votes...)
	out.EventLog = append([]EventEntry(nil), s.EventLog...)
	out.ChatLog = append([]ChatMessage(nil), s.ChatLog...)
	if s.Accusation != nil {
		acc := *s.Accusation
		acc.Questions = make([]Question, len(s.Accusation.Questions))
		for i, q := range s.Accusation.Questions {
			acc.Questions[i] = q
			if q.Answer != nil {
				a := *q.Answer
				acc.Questions[i].Answer = &a
			}
		}
		out.Accusation = &acc
	}
	if s.PhaseStarted != nil {
		t := *s.PhaseStarted
		out.PhaseStarted = &t
	}
	if s.Winner != nil {
		w := *s.Winner
		out.Winner = &w
	}
	if s.ResolvedRounds != nil {
		out.ResolvedRounds = make(map[int]string, len(s.ResolvedRounds))
		for k, v := range s.ResolvedRounds {
			out.ResolvedRounds[k] = v
		}
	}
	return out
}
