package game

import (
	"time"

	"github.com/Didrablian/deceptivemind-sub000/domain"
)

type Event string

const (
	EventStart           Event = "start"
	EventRevealDone      Event = "reveal-done"
	EventAccusationMade  Event = "accusation-made"
	EventNoAccusation    Event = "no-accusation"
	EventQuestionsClosed Event = "questions-closed"
	EventVotesResolved   Event = "votes-resolved"
	EventExecutionDone   Event = "execution-done"
	EventNightDone       Event = "night-done"
)

type Action string

const (
	ActionEliminate     Action = "eliminate"
	ActionConfirmTarget Action = "confirmTarget"
	ActionVote          Action = "vote"
	ActionAccuse        Action = "accuse"
	ActionAsk           Action = "askQuestion"
	ActionAnswer        Action = "answerQuestion"
	ActionNightKill     Action = "nightKill"
	ActionChat          Action = "sendChat"
)

type RoleCounts map[domain.Role]int

type actionRule struct {
	phases []domain.Phase
	roles  []domain.Role // empty means any alive player
}

// Variant is the full rule configuration for one game mode. The engine is
// generic over it: phase graph, role table, timers and win rules all come
// from here, never from variant-specific code paths.
type Variant struct {
	Name       string
	MinPlayers int
	MaxPlayers int

	// Roles maps an exact player count to its role distribution. Counts
	// above the largest key use the overflow rule: one of each anchor
	// role, max(1, n/4) minority members, FillRole for the rest.
	Roles       map[int]RoleCounts
	AnchorRoles []domain.Role
	FillRole    domain.Role

	MinorityRole     domain.Role
	ExecutedWinsRole domain.Role // "" when no role wins by being executed
	TieBreakRole     domain.Role // this role's own vote settles a tied tally
	MajorityName     string
	MinorityName     string

	ClueRoles []domain.Role
	BoardSize int // 0 means the variant has no word board

	Graph     map[domain.Phase]map[Event]domain.Phase
	Timeouts  map[domain.Phase]Event
	Durations map[domain.Phase]time.Duration
	Actions   map[Action]actionRule
}

func (v Variant) HasRole(r domain.Role) bool {
	for _, counts := range v.Roles {
		if counts[r] > 0 {
			return true
		}
	}
	return false
}

// roundLoop is the phase wiring shared by every variant once a game has
// started: discussion feeds an accusation gate, then voting, then an
// execution reveal, then the night action, then back to discussion.
func roundLoop() map[domain.Phase]map[Event]domain.Phase {
	return map[domain.Phase]map[Event]domain.Phase{
		domain.PhaseLobby: {
			EventStart: domain.PhaseRoleReveal,
		},
		domain.PhaseRoleReveal: {
			EventRevealDone: domain.PhaseDiscussion,
		},
		domain.PhaseDiscussion: {
			EventAccusationMade: domain.PhaseAccusation,
			EventNoAccusation:   domain.PhaseNight,
		},
		domain.PhaseAccusation: {
			EventQuestionsClosed: domain.PhaseVoting,
		},
		domain.PhaseVoting: {
			EventVotesResolved: domain.PhaseExecution,
		},
		domain.PhaseExecution: {
			EventExecutionDone: domain.PhaseNight,
		},
		domain.PhaseNight: {
			EventNightDone: domain.PhaseDiscussion,
		},
	}
}

func defaultTimeouts() map[domain.Phase]Event {
	return map[domain.Phase]Event{
		domain.PhaseRoleReveal: EventRevealDone,
		domain.PhaseDiscussion: EventNoAccusation,
		domain.PhaseAccusation: EventQuestionsClosed,
		domain.PhaseVoting:     EventVotesResolved,
		domain.PhaseExecution:  EventExecutionDone,
		domain.PhaseNight:      EventNightDone,
	}
}

func defaultDurations() map[domain.Phase]time.Duration {
	return map[domain.Phase]time.Duration{
		domain.PhaseRoleReveal: 15 * time.Second,
		domain.PhaseDiscussion: 3 * time.Minute,
		domain.PhaseAccusation: time.Minute,
		domain.PhaseVoting:     45 * time.Second,
		domain.PhaseExecution:  10 * time.Second,
		domain.PhaseNight:      30 * time.Second,
	}
}

func hiddenWordVariant() Variant {
	return Variant{
		Name:       "hidden-word",
		MinPlayers: 4,
		MaxPlayers: 10,
		Roles: map[int]RoleCounts{
			4: {domain.RoleCommunicator: 1, domain.RoleHelper: 1, domain.RoleImposter: 1, domain.RoleClueHolder: 1},
			5: {domain.RoleCommunicator: 1, domain.RoleHelper: 1, domain.RoleImposter: 1, domain.RoleClueHolder: 2},
			6: {domain.RoleCommunicator: 1, domain.RoleHelper: 1, domain.RoleImposter: 2, domain.RoleClueHolder: 2},
			7: {domain.RoleCommunicator: 1, domain.RoleHelper: 1, domain.RoleImposter: 2, domain.RoleClueHolder: 3},
			8: {domain.RoleCommunicator: 1, domain.RoleHelper: 1, domain.RoleImposter: 2, domain.RoleClueHolder: 4},
		},
		AnchorRoles:  []domain.Role{domain.RoleCommunicator, domain.RoleHelper},
		FillRole:     domain.RoleClueHolder,
		MinorityRole: domain.RoleImposter,
		MajorityName: "crew",
		MinorityName: "imposters",
		ClueRoles:    []domain.Role{domain.RoleHelper, domain.RoleClueHolder},
		BoardSize:    8,
		Graph:        roundLoop(),
		Timeouts:     defaultTimeouts(),
		Durations: map[domain.Phase]time.Duration{
			domain.PhaseRoleReveal: 15 * time.Second,
			domain.PhaseDiscussion: 4 * time.Minute,
			domain.PhaseAccusation: time.Minute,
			domain.PhaseVoting:     45 * time.Second,
			domain.PhaseExecution:  10 * time.Second,
			domain.PhaseNight:      30 * time.Second,
		},
		Actions: map[Action]actionRule{
			ActionEliminate:     {phases: []domain.Phase{domain.PhaseDiscussion}, roles: []domain.Role{domain.RoleCommunicator}},
			ActionConfirmTarget: {phases: []domain.Phase{domain.PhaseDiscussion}, roles: []domain.Role{domain.RoleCommunicator}},
			ActionAccuse:        {phases: []domain.Phase{domain.PhaseDiscussion}},
			ActionAsk:           {phases: []domain.Phase{domain.PhaseAccusation}},
			ActionAnswer:        {phases: []domain.Phase{domain.PhaseAccusation}},
			ActionVote:          {phases: []domain.Phase{domain.PhaseVoting}},
			ActionNightKill:     {phases: []domain.Phase{domain.PhaseNight}, roles: []domain.Role{domain.RoleImposter}},
		},
	}
}

func imposterVariant() Variant {
	return Variant{
		Name:       "imposter",
		MinPlayers: 4,
		MaxPlayers: 10,
		Roles: map[int]RoleCounts{
			4: {domain.RoleVillager: 2, domain.RoleImposter: 1, domain.RoleJester: 1},
			5: {domain.RoleVillager: 3, domain.RoleImposter: 1, domain.RoleJester: 1},
			6: {domain.RoleVillager: 3, domain.RoleImposter: 2, domain.RoleJester: 1},
			7: {domain.RoleVillager: 4, domain.RoleImposter: 2, domain.RoleJester: 1},
			8: {domain.RoleVillager: 5, domain.RoleImposter: 2, domain.RoleJester: 1},
		},
		AnchorRoles:      []domain.Role{domain.RoleJester},
		FillRole:         domain.RoleVillager,
		MinorityRole:     domain.RoleImposter,
		ExecutedWinsRole: domain.RoleJester,
		MajorityName:     "villagers",
		MinorityName:     "imposters",
		Graph:            roundLoop(),
		Timeouts:         defaultTimeouts(),
		Durations:        defaultDurations(),
		Actions: map[Action]actionRule{
			ActionAccuse:    {phases: []domain.Phase{domain.PhaseDiscussion}},
			ActionAsk:       {phases: []domain.Phase{domain.PhaseAccusation}},
			ActionAnswer:    {phases: []domain.Phase{domain.PhaseAccusation}},
			ActionVote:      {phases: []domain.Phase{domain.PhaseVoting}},
			ActionNightKill: {phases: []domain.Phase{domain.PhaseNight}, roles: []domain.Role{domain.RoleImposter}},
		},
	}
}

func courtroomVariant() Variant {
	return Variant{
		Name:       "courtroom",
		MinPlayers: 4,
		MaxPlayers: 10,
		Roles: map[int]RoleCounts{
			4: {domain.RoleJudge: 1, domain.RoleDetective: 1, domain.RoleSuspect: 1, domain.RoleWitness: 1},
			5: {domain.RoleJudge: 1, domain.RoleDetective: 1, domain.RoleSuspect: 1, domain.RoleWitness: 2},
			6: {domain.RoleJudge: 1, domain.RoleDetective: 1, domain.RoleSuspect: 2, domain.RoleWitness: 2},
			7: {domain.RoleJudge: 1, domain.RoleDetective: 1, domain.RoleSuspect: 2, domain.RoleWitness: 3},
			8: {domain.RoleJudge: 1, domain.RoleDetective: 1, domain.RoleSuspect: 2, domain.RoleWitness: 4},
		},
		AnchorRoles:  []domain.Role{domain.RoleJudge, domain.RoleDetective},
		FillRole:     domain.RoleWitness,
		MinorityRole: domain.RoleSuspect,
		TieBreakRole: domain.RoleJudge,
		MajorityName: "court",
		MinorityName: "suspects",
		Graph:        roundLoop(),
		Timeouts:     defaultTimeouts(),
		Durations:    defaultDurations(),
		Actions: map[Action]actionRule{
			ActionConfirmTarget: {phases: []domain.Phase{domain.PhaseDiscussion}, roles: []domain.Role{domain.RoleDetective}},
			ActionAccuse:        {phases: []domain.Phase{domain.PhaseDiscussion}},
			ActionAsk:           {phases: []domain.Phase{domain.PhaseAccusation}},
			ActionAnswer:        {phases: []domain.Phase{domain.PhaseAccusation}},
			ActionVote:          {phases: []domain.Phase{domain.PhaseVoting}},
			ActionNightKill:     {phases: []domain.Phase{domain.PhaseNight}, roles: []domain.Role{domain.RoleSuspect}},
		},
	}
}

// Variants returns the built-in game modes keyed by name.
func Variants() map[string]Variant {
	return map[string]Variant{
		"hidden-word": hiddenWordVariant(),
		"imposter":    imposterVariant(),
		"courtroom":   courtroomVariant(),
	}
}
