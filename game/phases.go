package game

import (
	"time"

	"github.com/Didrablian/deceptivemind-sub000/domain"
)

// Machine is the pure per-variant phase state machine. It owns the closed
// transition table, action legality, and deadline stamping; it never
// touches the store.
type Machine struct {
	v Variant
}

func NewMachine(v Variant) Machine {
	return Machine{v: v}
}

// Next resolves (phase, event) against the variant's transition table.
// Unknown pairs are rejected; there is no generic fallback path.
func (m Machine) Next(phase domain.Phase, ev Event) (domain.Phase, error) {
	edges, ok := m.v.Graph[phase]
	if !ok {
		return "", domain.ErrWrongPhase
	}
	next, ok := edges[ev]
	if !ok {
		return "", domain.ErrWrongPhase
	}
	return next, nil
}

// CheckAction verifies that the actor's role may perform the action in the
// session's current phase. Phase is checked before role so the caller gets
// the more useful rejection.
func (m Machine) CheckAction(s *domain.Session, actor *domain.Player, a Action) error {
	rule, ok := m.v.Actions[a]
	if !ok {
		return domain.ErrWrongPhase
	}
	phaseOk := false
	for _, p := range rule.phases {
		if p == s.Phase {
			phaseOk = true
			break
		}
	}
	if !phaseOk {
		return domain.ErrWrongPhase
	}
	if !actor.IsAlive {
		return domain.ErrNotAlive
	}
	if len(rule.roles) == 0 {
		return nil
	}
	for _, r := range rule.roles {
		if r == actor.Role {
			return nil
		}
	}
	return domain.ErrWrongRole
}

// Advance moves the session along the named edge and stamps phase timing:
// timed phases get a fresh start time, lobby and terminal phases clear it.
func (m Machine) Advance(s *domain.Session, ev Event, now time.Time) error {
	next, err := m.Next(s.Phase, ev)
	if err != nil {
		return err
	}
	s.Phase = next
	if d, ok := m.v.Durations[next]; ok {
		started := now
		s.PhaseStarted = &started
		s.PhaseSeconds = int(d / time.Second)
	} else {
		s.PhaseStarted = nil
		s.PhaseSeconds = 0
	}
	return nil
}

// Expired reports whether the current phase's deadline has passed.
func (m Machine) Expired(s *domain.Session, now time.Time) bool {
	deadline, ok := s.Deadline()
	if !ok {
		return false
	}
	return now.After(deadline)
}

// TimeoutEvent returns the edge the machine takes on its own when the
// current phase's timer runs out.
func (m Machine) TimeoutEvent(phase domain.Phase) (Event, bool) {
	ev, ok := m.v.Timeouts[phase]
	return ev, ok
}
