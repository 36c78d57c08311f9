package game

import (
	"context"
	"strings"
	"unicode"

	"github.com/Didrablian/deceptivemind-sub000/domain"
)

// GeneratedContent is the raw output of the external content provider.
// Every field is untrusted until BuildBoard has approved it.
type GeneratedContent struct {
	Items  []string `json:"items"`
	Target string   `json:"target"`
	Clues  []string `json:"clues"`
}

// Generator produces vocabulary for a round. Implementations may fail or
// return malformed data at any time; callers go through BuildBoard.
type Generator interface {
	Generate(ctx context.Context, count int, theme string) (GeneratedContent, error)
}

const placeholderClue = "hmm"

// fallbackPool backs every content failure. It must stay comfortably larger
// than any variant's board size.
var fallbackPool = []string{
	"lighthouse", "compass", "violin", "glacier", "lantern",
	"umbrella", "telescope", "anchor", "pyramid", "cactus",
	"hammock", "windmill", "volcano", "satellite", "labyrinth",
	"waterfall", "scarecrow", "submarine", "chandelier", "tornado",
}

// BuildBoard validates provider output and returns a board the engine can
// trust: exactly count items, no empties, no duplicates, exactly one target
// that is a member of the list, and exactly clueCount cleaned clues. It
// never fails; any contract violation is repaired from the fallback pool.
func BuildBoard(ctx context.Context, gen Generator, count, clueCount int, theme string) ([]domain.BoardItem, []string) {
	raw, err := gen.Generate(ctx, count, theme)
	if err != nil {
		raw = GeneratedContent{}
	}

	seen := make(map[string]bool, count)
	items := make([]string, 0, count)
	for _, it := range raw.Items {
		cleaned := cleanItem(it)
		if cleaned == "" {
			continue
		}
		key := strings.ToLower(cleaned)
		if seen[key] {
			continue
		}
		seen[key] = true
		items = append(items, cleaned)
		if len(items) == count {
			break
		}
	}
	for _, w := range fallbackPool {
		if len(items) == count {
			break
		}
		if seen[strings.ToLower(w)] {
			continue
		}
		seen[strings.ToLower(w)] = true
		items = append(items, w)
	}

	target := cleanItem(raw.Target)
	targetIndex := 0
	for i, it := range items {
		if strings.EqualFold(it, target) {
			targetIndex = i
			break
		}
	}

	board := make([]domain.BoardItem, len(items))
	for i, it := range items {
		board[i] = domain.BoardItem{Text: it, IsTarget: i == targetIndex}
	}

	clues := make([]string, 0, clueCount)
	for _, c := range raw.Clues {
		if len(clues) == clueCount {
			break
		}
		clues = append(clues, CleanClue(c))
	}
	for len(clues) < clueCount {
		clues = append(clues, placeholderClue)
	}

	return board, clues
}

// CleanClue reduces a clue to its first whitespace-delimited token with
// non-alphanumeric boundary characters stripped. An empty result becomes
// the placeholder clue.
func CleanClue(clue string) string {
	fields := strings.Fields(clue)
	if len(fields) == 0 {
		return placeholderClue
	}
	cleaned := strings.TrimFunc(fields[0], func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	if cleaned == "" {
		return placeholderClue
	}
	return cleaned
}

func cleanItem(item string) string {
	return strings.TrimFunc(strings.TrimSpace(item), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
