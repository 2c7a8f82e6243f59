package classify

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"sync"
)

// Embedder maps texts into a shared vector space. infer.Embedder satisfies
// this with a local ONNX model; LexicalEmbedder is the model-free default.
type Embedder interface {
	EmbedBatch(texts []string) ([][]float32, error)
}

// SimilarityScorer returns the nearest label by cosine similarity between
// the text embedding and pre-embedded label descriptions. Confidence is
// the similarity score; below the threshold the text stays unknown.
type SimilarityScorer struct {
	emb       Embedder
	threshold float64

	mu    sync.Mutex
	cache map[string][]float32 // label text -> embedding
}

// NewSimilarityScorer wraps an embedder. threshold 0 always returns the
// nearest label.
func NewSimilarityScorer(emb Embedder, threshold float64) *SimilarityScorer {
	return &SimilarityScorer{
		emb:       emb,
		threshold: threshold,
		cache:     make(map[string][]float32),
	}
}

func (s *SimilarityScorer) Name() string { return "similarity" }

// ScoreBatch embeds the texts, embeds any labels not yet cached, and picks
// the closest label per text.
func (s *SimilarityScorer) ScoreBatch(ctx context.Context, texts []string, vocab []Label) ([]Match, error) {
	if s.emb == nil {
		return nil, ErrScorerUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	labelVecs, err := s.labelVectors(vocab)
	if err != nil {
		return nil, err
	}
	textVecs, err := s.emb.EmbedBatch(texts)
	if err != nil {
		return nil, fmt.Errorf("similarity: embed texts: %w", err)
	}
	if len(textVecs) != len(texts) {
		return nil, fmt.Errorf("similarity: embedder returned %d vectors for %d texts", len(textVecs), len(texts))
	}

	matches := make([]Match, len(texts))
	for i, vec := range textVecs {
		best := Match{Label: SignalUnknown, Confidence: -1}
		for li, lv := range labelVecs {
			sim := cosine(vec, lv)
			if sim > best.Confidence {
				best = Match{Label: vocab[li].Name, Confidence: sim}
			}
		}
		if best.Confidence < 0 {
			best.Confidence = 0
		}
		if best.Confidence < s.threshold {
			best.Label = SignalUnknown
		}
		matches[i] = best
	}
	return matches, nil
}

// labelVectors returns one embedding per vocabulary entry, embedding the
// label name together with its description so short label names still
// carry their meaning.
func (s *SimilarityScorer) labelVectors(vocab []Label) ([][]float32, error) {
	texts := make([]string, len(vocab))
	for i, l := range vocab {
		texts[i] = CleanText(l.Name + " " + l.Description)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var missing []string
	var missingIdx []int
	for i, t := range texts {
		if _, ok := s.cache[t]; !ok {
			missing = append(missing, t)
			missingIdx = append(missingIdx, i)
		}
	}
	if len(missing) > 0 {
		vecs, err := s.emb.EmbedBatch(missing)
		if err != nil {
			return nil, fmt.Errorf("similarity: embed labels: %w", err)
		}
		if len(vecs) != len(missing) {
			return nil, fmt.Errorf("similarity: embedder returned %d vectors for %d labels", len(vecs), len(missing))
		}
		for j := range missing {
			s.cache[texts[missingIdx[j]]] = vecs[j]
		}
	}

	out := make([][]float32, len(vocab))
	for i, t := range texts {
		out[i] = s.cache[t]
	}
	return out, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// LexicalEmbedder is a deterministic feature-hashing bag-of-words
// embedder. It needs no model files, which keeps the similarity variant
// usable out of the box; cosine over its vectors approximates token
// overlap.
type LexicalEmbedder struct {
	dim int
}

// NewLexicalEmbedder creates a hashing embedder with the given
// dimensionality (512 when dim <= 0).
func NewLexicalEmbedder(dim int) *LexicalEmbedder {
	if dim <= 0 {
		dim = 512
	}
	return &LexicalEmbedder{dim: dim}
}

// EmbedBatch hashes each token of each text into a fixed-size vector.
func (e *LexicalEmbedder) EmbedBatch(texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, e.dim)
		for _, tok := range strings.Fields(text) {
			h := fnv.New32a()
			h.Write([]byte(tok))
			vec[int(h.Sum32())%e.dim]++
		}
		out[i] = vec
	}
	return out, nil
}
