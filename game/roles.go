package game

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/Didrablian/deceptivemind-sub000/domain"
)

// RoleCountsFor resolves the role distribution for n players. Counts inside
// the variant's table are used as-is; larger counts fall back to the
// overflow rule: one of each anchor role, max(1, n/4) minority members,
// FillRole for everyone else.
func RoleCountsFor(v Variant, n int) (RoleCounts, error) {
	if n < v.MinPlayers {
		return nil, domain.ErrNotEnoughPlayers
	}
	if n > v.MaxPlayers {
		return nil, domain.ErrTooManyPlayers
	}
	if counts, ok := v.Roles[n]; ok {
		out := make(RoleCounts, len(counts))
		for r, c := range counts {
			out[r] = c
		}
		return out, nil
	}

	counts := RoleCounts{}
	remaining := n
	for _, r := range v.AnchorRoles {
		counts[r]++
		remaining--
	}
	minority := n / 4
	if minority < 1 {
		minority = 1
	}
	counts[v.MinorityRole] += minority
	remaining -= minority
	counts[v.FillRole] += remaining
	return counts, nil
}

// AssignRoles tags every player with exactly one role so that the resulting
// multiset matches the variant's distribution for the roster size. The role
// deck is shuffled (Fisher-Yates via rand.Shuffle) so role never correlates
// with join order. Players are returned alive with clues cleared; clue
// distribution is a separate step.
func AssignRoles(players []domain.Player, v Variant, rng *rand.Rand) ([]domain.Player, error) {
	counts, err := RoleCountsFor(v, len(players))
	if err != nil {
		return nil, err
	}

	deck := make([]domain.Role, 0, len(players))
	roles := make([]domain.Role, 0, len(counts))
	for r := range counts {
		roles = append(roles, r)
	}
	// map order is random; sort so the deck is deterministic for a seed
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	for _, r := range roles {
		for i := 0; i < counts[r]; i++ {
			deck = append(deck, r)
		}
	}
	if len(deck) != len(players) {
		return nil, fmt.Errorf("role table for %d players sums to %d", len(players), len(deck))
	}
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })

	out := make([]domain.Player, len(players))
	for i, p := range players {
		p.Role = deck[i]
		p.IsAlive = true
		p.Clue = ""
		out[i] = p
	}
	return out, nil
}

// ClueHolderCount reports how many players in the roster are entitled to a
// clue under the variant's rules.
func ClueHolderCount(players []domain.Player, v Variant) int {
	n := 0
	for _, p := range players {
		if clueEntitled(p.Role, v) {
			n++
		}
	}
	return n
}

// DistributeClues hands one clue to each clue-entitled player. Clues are
// dealt by clue-role priority (v.ClueRoles order), roster order within a
// role, so the strongest clue always lands on the first clue role. A short
// list leaves the trailing players with the placeholder clue.
func DistributeClues(players []domain.Player, clues []string, v Variant) []domain.Player {
	out := make([]domain.Player, len(players))
	copy(out, players)
	next := 0
	for _, role := range v.ClueRoles {
		for i := range out {
			if out[i].Role != role {
				continue
			}
			if next < len(clues) {
				out[i].Clue = clues[next]
				next++
			} else {
				out[i].Clue = placeholderClue
			}
		}
	}
	return out
}

func clueEntitled(r domain.Role, v Variant) bool {
	for _, cr := range v.ClueRoles {
		if cr == r {
			return true
		}
	}
	return false
}
