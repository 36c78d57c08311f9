package game

import (
	"strings"

	"github.com/Didrablian/deceptivemind-sub000/domain"
)

// VoteOutcome is the resolved result of one voting round.
type VoteOutcome struct {
	EliminatedId string
	Tie          bool
	TieBroken    bool // a tie settled by the tie-breaker's own vote
	Skipped      bool
}

// ResolveVotes tallies the round's votes from alive voters and picks the
// elimination target by plurality. A tie is settled by the tie-breaker's own
// vote when that vote sits among the leaders; failing that the round's
// accuser is eliminated; with no accuser on record the execution is skipped.
// Votes from dead or unknown voters and votes for dead targets never count.
func ResolveVotes(votes []domain.Vote, alive map[string]bool, accuserId, tieBreakerId string) VoteOutcome {
	tally := map[string]int{}
	counted := map[string]bool{}
	breakerVote := ""
	for _, v := range votes {
		if !alive[v.VoterId] || !alive[v.TargetId] {
			continue
		}
		if counted[v.VoterId] {
			continue
		}
		counted[v.VoterId] = true
		tally[v.TargetId]++
		if v.VoterId == tieBreakerId {
			breakerVote = v.TargetId
		}
	}

	if len(tally) == 0 {
		return VoteOutcome{Skipped: true}
	}

	max := 0
	leaders := []string{}
	for target, n := range tally {
		if n > max {
			max = n
			leaders = []string{target}
		} else if n == max {
			leaders = append(leaders, target)
		}
	}

	if len(leaders) == 1 {
		return VoteOutcome{EliminatedId: leaders[0]}
	}
	for _, l := range leaders {
		if l == breakerVote {
			return VoteOutcome{EliminatedId: breakerVote, Tie: true, TieBroken: true}
		}
	}
	if accuserId != "" && alive[accuserId] {
		return VoteOutcome{EliminatedId: accuserId, Tie: true}
	}
	return VoteOutcome{Tie: true, Skipped: true}
}

// AllVoted reports whether every alive player has a counted vote.
func AllVoted(votes []domain.Vote, alive map[string]bool) bool {
	voted := map[string]bool{}
	for _, v := range votes {
		if alive[v.VoterId] {
			voted[v.VoterId] = true
		}
	}
	return len(voted) == len(alive) && len(alive) > 0
}

const maxAccusationQuestions = 3

// AskQuestion appends a yes/no question to the accusation. Only the accuser
// may ask, only while fewer than three questions exist, and not while one
// is still unanswered.
func AskQuestion(acc *domain.Accusation, askerId, text string) error {
	if acc == nil || acc.AccuserId != askerId {
		return domain.ErrWrongRole
	}
	if len(acc.Questions) >= maxAccusationQuestions {
		return domain.ErrQuestionLimit
	}
	if n := len(acc.Questions); n > 0 && acc.Questions[n-1].Answer == nil {
		return domain.ErrQuestionPending
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ErrEmptyQuestion
	}
	acc.Questions = append(acc.Questions, domain.Question{Text: text})
	return nil
}

// AnswerQuestion records the accused's yes/no answer to the latest open
// question.
func AnswerQuestion(acc *domain.Accusation, answererId string, answer bool) error {
	if acc == nil || acc.AccusedId != answererId {
		return domain.ErrWrongRole
	}
	n := len(acc.Questions)
	if n == 0 || acc.Questions[n-1].Answer != nil {
		return domain.ErrNoPendingQuestion
	}
	acc.Questions[n-1].Answer = &answer
	return nil
}
