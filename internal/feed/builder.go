// Package feed assembles personalized, non-repeating challenge queues.
package feed

import (
	"math/rand"
	"sync"

	"github.com/fluent-loop/feed-engine/internal/models"
)

// DefaultBatchSize is used when a queue request does not specify one.
const DefaultBatchSize = 5

// diversityWindow is how many of the most recently added items must all
// carry distinct concept areas.
const diversityWindow = 3

// starterTypes is the low-barrier allow-list for the first item of a
// fresh queue.
var starterTypes = map[models.ChallengeType]bool{
	models.TypePromptForge:     true,
	models.TypeTasteCurator:    true,
	models.TypeReverseEngineer: true,
}

// Builder produces ordered challenge batches from a candidate pool. It
// has no side effects: output is a function of the pool, the exclusion
// set and the injected randomness source.
type Builder struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewBuilder creates a builder drawing randomness from src. Tests pass
// a seeded source for deterministic batches.
func NewBuilder(src rand.Source) *Builder {
	return &Builder{rng: rand.New(src)}
}

// Build assembles a fresh queue of up to batchSize challenges from pool,
// skipping every id in excluded.
//
// Selection order: one low-barrier starter when available, then a
// shuffled scan that skips candidates violating the concept-area
// diversity window or placing two externally-assisted types in a row,
// then an unconstrained fill pass over whatever eligible candidates
// remain. If every pool id is excluded the exclusion set is reset and
// the batch is drawn as a second pass through all content; the feed
// never dead-ends while the pool is non-empty.
func (b *Builder) Build(pool []*models.Challenge, excluded map[string]struct{}, batchSize int) []*models.Challenge {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	eligible := make([]*models.Challenge, 0, len(pool))
	for _, c := range pool {
		if _, skip := excluded[c.ID]; !skip {
			eligible = append(eligible, c)
		}
	}

	// Every id excluded: second pass through all content.
	if len(eligible) == 0 {
		if len(pool) == 0 {
			return nil
		}
		eligible = append(eligible, pool...)
	}

	b.shuffle(eligible)

	queue := make([]*models.Challenge, 0, batchSize)
	used := make(map[string]struct{}, batchSize)
	accept := func(c *models.Challenge) {
		queue = append(queue, c)
		used[c.ID] = struct{}{}
	}

	// Lower first-interaction friction: lead with a starter type.
	for _, c := range eligible {
		if starterTypes[c.Type] {
			accept(c)
			break
		}
	}

	for _, c := range eligible {
		if len(queue) >= batchSize {
			break
		}
		if _, taken := used[c.ID]; taken {
			continue
		}
		if violatesDiversity(queue, c) || assistedTwiceInARow(queue, c) {
			continue
		}
		accept(c)
	}

	// Constrained scan came up short: fill remaining slots ignoring
	// the diversity and assist constraints.
	if len(queue) < batchSize {
		for _, c := range eligible {
			if len(queue) >= batchSize {
				break
			}
			if _, taken := used[c.ID]; taken {
				continue
			}
			accept(c)
		}
	}

	return queue
}

// Append extends an existing queue with a fresh batch for infinite
// scroll. Ids already in the queue are excluded alongside excluded.
func (b *Builder) Append(existing []*models.Challenge, pool []*models.Challenge, excluded map[string]struct{}, batchSize int) []*models.Challenge {
	combined := make(map[string]struct{}, len(excluded)+len(existing))
	for id := range excluded {
		combined[id] = struct{}{}
	}
	for _, c := range existing {
		combined[c.ID] = struct{}{}
	}

	batch := b.Build(pool, combined, batchSize)
	out := make([]*models.Challenge, 0, len(existing)+len(batch))
	out = append(out, existing...)
	return append(out, batch...)
}

func (b *Builder) shuffle(items []*models.Challenge) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rng.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
}

// violatesDiversity reports whether accepting c would make two of the
// diversityWindow most recently added items share a concept area.
func violatesDiversity(queue []*models.Challenge, c *models.Challenge) bool {
	recent := diversityWindow - 1
	for i := len(queue) - 1; i >= 0 && i >= len(queue)-recent; i-- {
		if queue[i].ConceptArea == c.ConceptArea {
			return true
		}
	}
	return false
}

// assistedTwiceInARow reports whether c would put two externally
// assisted challenge types back to back.
func assistedTwiceInARow(queue []*models.Challenge, c *models.Challenge) bool {
	if !c.Type.ExternallyAssisted() {
		return false
	}
	return len(queue) > 0 && queue[len(queue)-1].Type.ExternallyAssisted()
}
