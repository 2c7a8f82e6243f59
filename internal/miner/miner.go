// Package miner incrementally clusters log message bodies into templates.
// The clustering tree routes a token sequence first by token count, then by
// its leading tokens, into a small bucket of candidate templates; within a
// bucket a positional similarity score decides between matching an existing
// template and creating a new one.
package miner

import (
	"strconv"

	"github.com/larchwood/logsift/internal/model"
)

// Config holds the clustering parameters.
type Config struct {
	SimilarityThreshold float64 // fraction of matching positions required
	Depth               int     // token positions used for tree routing
	MaxChildren         int     // fan-out limit per routing node
	MaxTokens           int     // tokens beyond this never participate in routing
}

// DefaultConfig returns the standard Drain parameters.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: 0.5,
		Depth:               4,
		MaxChildren:         100,
		MaxTokens:           128,
	}
}

type node struct {
	children map[string]*node
	bucket   []int // template IDs, creation order
}

// Miner is a single-writer clustering tree. It is not safe for concurrent
// use; shard per source and Merge the results instead.
type Miner struct {
	cfg       Config
	root      map[string]*node // keyed by token count
	templates []*model.Template
	sentinel  *model.Template // lazily created for empty bodies
}

// New creates an empty Miner.
func New(cfg Config) *Miner {
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = 0.5
	}
	if cfg.Depth <= 0 {
		cfg.Depth = 4
	}
	if cfg.MaxChildren <= 0 {
		cfg.MaxChildren = 100
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 128
	}
	return &Miner{cfg: cfg, root: make(map[string]*node)}
}

// Add routes one message body through the tree and returns the ID of the
// template it matched or created. IDs are assigned in creation order,
// starting at 1; empty bodies map to the sentinel template.
func (m *Miner) Add(body string) int {
	tokens := Tokenize(body)
	if len(tokens) == 0 {
		if m.sentinel == nil {
			m.sentinel = &model.Template{ID: model.SentinelTemplateID}
		}
		m.sentinel.ExampleCount++
		return m.sentinel.ID
	}

	leaf := m.route(tokens)
	if id, ok := m.match(leaf, tokens); ok {
		return id
	}

	t := &model.Template{
		ID:           len(m.templates) + 1,
		Tokens:       append([]string(nil), tokens...),
		ExampleCount: 1,
	}
	m.templates = append(m.templates, t)
	leaf.bucket = append(leaf.bucket, t.ID)
	return t.ID
}

// route descends the tree to the bucket for this token sequence, creating
// nodes as needed.
func (m *Miner) route(tokens []string) *node {
	cur := m.child(m.rootNode(), strconv.Itoa(len(tokens)))

	depth := m.cfg.Depth
	if depth > m.cfg.MaxTokens {
		depth = m.cfg.MaxTokens
	}
	if depth > len(tokens) {
		depth = len(tokens)
	}
	for i := 0; i < depth; i++ {
		key := tokens[i]
		if hasDigits(key) {
			key = model.Wildcard
		}
		cur = m.child(cur, key)
	}
	return cur
}

func (m *Miner) rootNode() *node {
	// The root is represented as a pseudo-node over m.root.
	return &node{children: m.root}
}

// child returns the named child, creating it unless the fan-out limit is
// reached, in which case the wildcard child absorbs the overflow.
func (m *Miner) child(n *node, key string) *node {
	if n.children == nil {
		n.children = make(map[string]*node)
	}
	if c, ok := n.children[key]; ok {
		return c
	}
	if key != model.Wildcard && len(n.children) >= m.cfg.MaxChildren {
		key = model.Wildcard
		if c, ok := n.children[key]; ok {
			return c
		}
	}
	c := &node{}
	n.children[key] = c
	return c
}

// match scans the bucket for the best template at or above the similarity
// threshold. Ties on score go to the template with the highest example
// count, favoring established templates; remaining ties to the lowest ID.
// On a match the winning template absorbs the new tokens: disagreeing
// positions become wildcards.
func (m *Miner) match(leaf *node, tokens []string) (int, bool) {
	bestID := -1
	bestSim := -1.0
	bestCount := -1
	for _, id := range leaf.bucket {
		t := m.templates[id-1]
		if len(t.Tokens) != len(tokens) {
			continue
		}
		sim := similarity(t.Tokens, tokens)
		if sim < m.cfg.SimilarityThreshold {
			continue
		}
		if sim > bestSim || (sim == bestSim && t.ExampleCount > bestCount) {
			bestID, bestSim, bestCount = t.ID, sim, t.ExampleCount
		}
	}
	if bestID < 0 {
		return 0, false
	}

	t := m.templates[bestID-1]
	for i, tok := range tokens {
		if t.Tokens[i] != tok {
			t.Tokens[i] = model.Wildcard
		}
	}
	t.ExampleCount++
	return bestID, true
}

// similarity is the fraction of positions that agree; wildcard positions
// count as agreement.
func similarity(pattern, tokens []string) float64 {
	same := 0
	for i := range pattern {
		if pattern[i] == tokens[i] || pattern[i] == model.Wildcard {
			same++
		}
	}
	return float64(same) / float64(len(pattern))
}

// Templates returns a snapshot of all templates in ID order. The sentinel
// template, if used, comes first.
func (m *Miner) Templates() []model.Template {
	out := make([]model.Template, 0, len(m.templates)+1)
	if m.sentinel != nil {
		out = append(out, *m.sentinel)
	}
	for _, t := range m.templates {
		cp := *t
		cp.Tokens = append([]string(nil), t.Tokens...)
		out = append(out, cp)
	}
	return out
}
