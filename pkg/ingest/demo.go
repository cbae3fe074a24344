package ingest

import (
	"io"
	"math/rand/v2"
	"time"
)

// DemoConfig sizes the generated data set.
type DemoConfig struct {
	Entities            int
	Keys                int
	AttributesPerEntity int

	// Seed makes the output reproducible. Zero picks one from the clock.
	Seed int64
}

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Generator produces random long-format records: random five-character
// entity names, keys drawn from a pool of "C/xxxxx" names and random
// ten-character values. It implements Decoder.
type Generator struct {
	cfg    DemoConfig
	rng    *rand.Rand
	keys   []string
	entity string
	picks  []int
	done   int
}

// NewGenerator creates a generator for cfg.
func NewGenerator(cfg DemoConfig) *Generator {
	seed := uint64(cfg.Seed)
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	keys := make([]string, cfg.Keys)
	for i := range keys {
		keys[i] = "C/" + randomString(rng, 5)
	}

	return &Generator{cfg: cfg, rng: rng, keys: keys}
}

// Keys returns the key pool.
func (g *Generator) Keys() []string {
	return g.keys
}

// Next returns the next record.
func (g *Generator) Next() (Record, error) {
	for len(g.picks) == 0 {
		if g.done >= g.cfg.Entities || len(g.keys) == 0 {
			return Record{}, io.EOF
		}
		g.done++
		g.entity = randomString(g.rng, 5)

		n := min(g.cfg.AttributesPerEntity, len(g.keys))
		g.picks = g.rng.Perm(len(g.keys))[:n]
	}

	key := g.keys[g.picks[0]]
	g.picks = g.picks[1:]

	return Record{
		Entity: g.entity,
		Key:    key,
		Value:  randomString(g.rng, 10),
	}, nil
}

func randomString(rng *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphanumeric[rng.IntN(len(alphanumeric))]
	}
	return string(b)
}
