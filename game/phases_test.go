package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Didrablian/deceptivemind-sub000/domain"
)

func TestMachineNext(t *testing.T) {
	m := NewMachine(imposterVariant())

	tests := []struct {
		name    string
		phase   domain.Phase
		event   Event
		want    domain.Phase
		wantErr bool
	}{
		{name: "lobby starts into role reveal", phase: domain.PhaseLobby, event: EventStart, want: domain.PhaseRoleReveal},
		{name: "accusation opens voting", phase: domain.PhaseAccusation, event: EventQuestionsClosed, want: domain.PhaseVoting},
		{name: "quiet discussion skips to night", phase: domain.PhaseDiscussion, event: EventNoAccusation, want: domain.PhaseNight},
		{name: "night loops back to discussion", phase: domain.PhaseNight, event: EventNightDone, want: domain.PhaseDiscussion},
		{name: "unknown edge rejected", phase: domain.PhaseVoting, event: EventStart, wantErr: true},
		{name: "no edges out of finished", phase: domain.PhaseFinished, event: EventStart, wantErr: true},
		{name: "voting cannot be reopened", phase: domain.PhaseExecution, event: EventVotesResolved, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := m.Next(tt.phase, tt.event)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrWrongPhase)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, next)
		})
	}
}

// every timed phase must have an edge for its own timeout event, in every
// variant, or an expired timer would wedge the session
func TestTimeoutEventsAreReachable(t *testing.T) {
	for name, v := range Variants() {
		m := NewMachine(v)
		for phase, ev := range v.Timeouts {
			_, err := m.Next(phase, ev)
			assert.NoError(t, err, "%s: phase %s timeout %s has no edge", name, phase, ev)
		}
	}
}

func TestAdvanceStampsTiming(t *testing.T) {
	v := imposterVariant()
	m := NewMachine(v)
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	s := &domain.Session{Phase: domain.PhaseLobby}
	require.NoError(t, m.Advance(s, EventStart, now))

	assert.Equal(t, domain.PhaseRoleReveal, s.Phase)
	require.NotNil(t, s.PhaseStarted)
	assert.Equal(t, now, *s.PhaseStarted)
	assert.Equal(t, int(v.Durations[domain.PhaseRoleReveal]/time.Second), s.PhaseSeconds)

	deadline, ok := s.Deadline()
	require.True(t, ok)
	assert.Equal(t, now.Add(v.Durations[domain.PhaseRoleReveal]), deadline)
}

func TestAdvanceClearsTimingOnUntimedPhase(t *testing.T) {
	v := imposterVariant()
	v.Graph[domain.PhaseExecution][EventExecutionDone] = domain.PhaseLobby // lobby carries no timer
	m := NewMachine(v)

	started := time.Now()
	s := &domain.Session{Phase: domain.PhaseExecution, PhaseStarted: &started, PhaseSeconds: 10}
	require.NoError(t, m.Advance(s, EventExecutionDone, time.Now()))

	assert.Equal(t, domain.PhaseLobby, s.Phase)
	assert.Nil(t, s.PhaseStarted)
	assert.Zero(t, s.PhaseSeconds)
	_, ok := s.Deadline()
	assert.False(t, ok)
}

func TestExpired(t *testing.T) {
	m := NewMachine(imposterVariant())
	started := time.Now()
	s := &domain.Session{Phase: domain.PhaseVoting, PhaseStarted: &started, PhaseSeconds: 45}

	assert.False(t, m.Expired(s, started.Add(44*time.Second)))
	assert.True(t, m.Expired(s, started.Add(46*time.Second)))

	s.PhaseStarted = nil
	assert.False(t, m.Expired(s, started.Add(time.Hour)), "untimed phases never expire")
}

func TestCheckAction(t *testing.T) {
	v := imposterVariant()
	m := NewMachine(v)

	alive := &domain.Player{Id: "p1", Role: domain.RoleVillager, IsAlive: true}
	imposter := &domain.Player{Id: "p2", Role: domain.RoleImposter, IsAlive: true}
	dead := &domain.Player{Id: "p3", Role: domain.RoleImposter, IsAlive: false}

	tests := []struct {
		name    string
		phase   domain.Phase
		actor   *domain.Player
		action  Action
		wantErr error
	}{
		{name: "anyone may accuse in discussion", phase: domain.PhaseDiscussion, actor: alive, action: ActionAccuse},
		{name: "imposter kills at night", phase: domain.PhaseNight, actor: imposter, action: ActionNightKill},
		{name: "villager cannot kill at night", phase: domain.PhaseNight, actor: alive, action: ActionNightKill, wantErr: domain.ErrWrongRole},
		{name: "wrong phase beats wrong role", phase: domain.PhaseVoting, actor: alive, action: ActionNightKill, wantErr: domain.ErrWrongPhase},
		{name: "dead players act on nothing", phase: domain.PhaseNight, actor: dead, action: ActionNightKill, wantErr: domain.ErrNotAlive},
		{name: "vote outside voting", phase: domain.PhaseDiscussion, actor: alive, action: ActionVote, wantErr: domain.ErrWrongPhase},
		{name: "unconfigured action", phase: domain.PhaseDiscussion, actor: alive, action: ActionEliminate, wantErr: domain.ErrWrongPhase},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &domain.Session{Phase: tt.phase}
			err := m.CheckAction(s, tt.actor, tt.action)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}
