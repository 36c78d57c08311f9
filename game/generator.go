package game

import (
	"context"
	"math/rand"
	"sync"
)

// wordPool is the built-in vocabulary for the default generator. The real
// deployment points the engine at a generative provider; this one keeps
// local games and tests self-contained.
var wordPool = []string{
	"lighthouse", "compass", "violin", "glacier", "lantern",
	"umbrella", "telescope", "anchor", "pyramid", "cactus",
	"hammock", "windmill", "volcano", "satellite", "labyrinth",
	"waterfall", "scarecrow", "submarine", "chandelier", "tornado",
	"carousel", "avalanche", "parachute", "fortress", "meteor",
	"gondola", "harpoon", "obelisk", "quicksand", "zeppelin",
}

// WordPoolGenerator deals boards from the embedded pool. The first clue is
// the target itself (the helper knows the secret word); the rest are
// decoys drawn from the same board.
type WordPoolGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewWordPoolGenerator(seed int64) *WordPoolGenerator {
	return &WordPoolGenerator{rng: rand.New(rand.NewSource(seed))}
}

func (g *WordPoolGenerator) Generate(ctx context.Context, count int, theme string) (GeneratedContent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	picks := g.rng.Perm(len(wordPool))
	if count > len(picks) {
		count = len(picks)
	}
	items := make([]string, count)
	for i := 0; i < count; i++ {
		items[i] = wordPool[picks[i]]
	}
	target := items[g.rng.Intn(len(items))]

	clues := make([]string, 0, count)
	clues = append(clues, target)
	for _, it := range items {
		if it != target {
			clues = append(clues, it)
		}
	}
	return GeneratedContent{Items: items, Target: target, Clues: clues}, nil
}
