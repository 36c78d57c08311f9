package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Didrablian/deceptivemind-sub000/domain"
)

func votesFor(pairs ...[2]string) []domain.Vote {
	out := make([]domain.Vote, len(pairs))
	for i, p := range pairs {
		out[i] = domain.Vote{VoterId: p[0], TargetId: p[1], Round: 1}
	}
	return out
}

func TestResolveVotes(t *testing.T) {
	alive := map[string]bool{"p1": true, "p2": true, "p3": true, "p4": true}

	tests := []struct {
		name    string
		votes   []domain.Vote
		alive   map[string]bool
		accuser string
		breaker string
		want    VoteOutcome
	}{
		{
			name:  "plurality wins",
			votes: votesFor([2]string{"p1", "p3"}, [2]string{"p2", "p3"}, [2]string{"p4", "p1"}),
			alive: alive,
			want:  VoteOutcome{EliminatedId: "p3"},
		},
		{
			name:    "tie falls on the accuser",
			votes:   votesFor([2]string{"p1", "p3"}, [2]string{"p2", "p4"}),
			alive:   alive,
			accuser: "p1",
			want:    VoteOutcome{EliminatedId: "p1", Tie: true},
		},
		{
			name:  "tie with no accuser skips the execution",
			votes: votesFor([2]string{"p1", "p3"}, [2]string{"p2", "p4"}),
			alive: alive,
			want:  VoteOutcome{Tie: true, Skipped: true},
		},
		{
			name:    "tie with a dead accuser skips",
			votes:   votesFor([2]string{"p1", "p3"}, [2]string{"p2", "p4"}),
			alive:   alive,
			accuser: "p5",
			want:    VoteOutcome{Tie: true, Skipped: true},
		},
		{
			name:  "no votes skips",
			votes: nil,
			alive: alive,
			want:  VoteOutcome{Skipped: true},
		},
		{
			name:  "dead voters are ignored",
			votes: votesFor([2]string{"p9", "p3"}, [2]string{"p1", "p4"}),
			alive: alive,
			want:  VoteOutcome{EliminatedId: "p4"},
		},
		{
			name:  "votes for the dead are ignored",
			votes: votesFor([2]string{"p1", "p9"}, [2]string{"p2", "p4"}),
			alive: alive,
			want:  VoteOutcome{EliminatedId: "p4"},
		},
		{
			name:  "only the first vote per voter counts",
			votes: votesFor([2]string{"p1", "p3"}, [2]string{"p1", "p4"}, [2]string{"p1", "p4"}),
			alive: alive,
			want:  VoteOutcome{EliminatedId: "p3"},
		},
		{
			name:  "partial turnout still resolves",
			votes: votesFor([2]string{"p1", "p2"}),
			alive: alive,
			want:  VoteOutcome{EliminatedId: "p2"},
		},
		{
			name:    "tie-breaker vote settles the tie before the accuser rule",
			votes:   votesFor([2]string{"p1", "p3"}, [2]string{"p2", "p4"}),
			alive:   alive,
			accuser: "p2",
			breaker: "p1",
			want:    VoteOutcome{EliminatedId: "p3", Tie: true, TieBroken: true},
		},
		{
			name:    "tie-breaker who backed a non-leader defers to the accuser rule",
			votes:   votesFor([2]string{"p1", "p3"}, [2]string{"p2", "p3"}, [2]string{"p3", "p4"}, [2]string{"p4", "p4"}, [2]string{"p5", "p2"}),
			alive:   map[string]bool{"p1": true, "p2": true, "p3": true, "p4": true, "p5": true},
			accuser: "p2",
			breaker: "p5",
			want:    VoteOutcome{EliminatedId: "p2", Tie: true},
		},
		{
			name:    "dead tie-breaker has no say",
			votes:   votesFor([2]string{"p9", "p3"}, [2]string{"p1", "p3"}, [2]string{"p2", "p4"}),
			alive:   alive,
			accuser: "p2",
			breaker: "p9",
			want:    VoteOutcome{EliminatedId: "p2", Tie: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveVotes(tt.votes, tt.alive, tt.accuser, tt.breaker)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAllVoted(t *testing.T) {
	alive := map[string]bool{"p1": true, "p2": true}

	assert.False(t, AllVoted(nil, alive))
	assert.False(t, AllVoted(votesFor([2]string{"p1", "p2"}), alive))
	assert.True(t, AllVoted(votesFor([2]string{"p1", "p2"}, [2]string{"p2", "p1"}), alive))
	assert.True(t, AllVoted(votesFor([2]string{"p1", "p2"}, [2]string{"p2", "p1"}, [2]string{"p9", "p1"}), alive),
		"dead voters do not block completion")
	assert.False(t, AllVoted(votesFor([2]string{"p1", "p2"}), map[string]bool{}), "an empty roster never completes")
}

func TestAskQuestion(t *testing.T) {
	yes := true

	t.Run("accuser asks up to three", func(t *testing.T) {
		acc := &domain.Accusation{AccuserId: "p1", AccusedId: "p2"}
		require.NoError(t, AskQuestion(acc, "p1", "were you near the well?"))
		acc.Questions[0].Answer = &yes
		require.NoError(t, AskQuestion(acc, "p1", "alone?"))
		acc.Questions[1].Answer = &yes
		require.NoError(t, AskQuestion(acc, "p1", "at midnight?"))
		acc.Questions[2].Answer = &yes
		assert.ErrorIs(t, AskQuestion(acc, "p1", "one more?"), domain.ErrQuestionLimit)
	})

	t.Run("no second question while one is open", func(t *testing.T) {
		acc := &domain.Accusation{AccuserId: "p1", AccusedId: "p2"}
		require.NoError(t, AskQuestion(acc, "p1", "first?"))
		assert.ErrorIs(t, AskQuestion(acc, "p1", "second?"), domain.ErrQuestionPending)
	})

	t.Run("only the accuser asks", func(t *testing.T) {
		acc := &domain.Accusation{AccuserId: "p1", AccusedId: "p2"}
		assert.ErrorIs(t, AskQuestion(acc, "p2", "may I?"), domain.ErrWrongRole)
		assert.ErrorIs(t, AskQuestion(nil, "p1", "anyone?"), domain.ErrWrongRole)
	})

	t.Run("blank questions rejected", func(t *testing.T) {
		acc := &domain.Accusation{AccuserId: "p1", AccusedId: "p2"}
		assert.ErrorIs(t, AskQuestion(acc, "p1", "   "), domain.ErrEmptyQuestion)
		assert.Empty(t, acc.Questions)
	})
}

func TestAnswerQuestion(t *testing.T) {
	t.Run("accused answers the open question", func(t *testing.T) {
		acc := &domain.Accusation{AccuserId: "p1", AccusedId: "p2"}
		require.NoError(t, AskQuestion(acc, "p1", "guilty?"))
		require.NoError(t, AnswerQuestion(acc, "p2", false))
		require.NotNil(t, acc.Questions[0].Answer)
		assert.False(t, *acc.Questions[0].Answer)
	})

	t.Run("nothing open to answer", func(t *testing.T) {
		acc := &domain.Accusation{AccuserId: "p1", AccusedId: "p2"}
		assert.ErrorIs(t, AnswerQuestion(acc, "p2", true), domain.ErrNoPendingQuestion)
		require.NoError(t, AskQuestion(acc, "p1", "guilty?"))
		require.NoError(t, AnswerQuestion(acc, "p2", true))
		assert.ErrorIs(t, AnswerQuestion(acc, "p2", true), domain.ErrNoPendingQuestion)
	})

	t.Run("only the accused answers", func(t *testing.T) {
		acc := &domain.Accusation{AccuserId: "p1", AccusedId: "p2"}
		require.NoError(t, AskQuestion(acc, "p1", "guilty?"))
		assert.ErrorIs(t, AnswerQuestion(acc, "p3", true), domain.ErrWrongRole)
	})
}
