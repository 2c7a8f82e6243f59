package infer

import "fmt"

// Embedder produces sentence embeddings from a local ONNX encoder:
// tokenize, run the encoder, mean-pool token states, then apply the dense
// projection shipped with the model.
type Embedder struct {
	sess *session
	tok  *wordpiece
	proj *projection
}

// NewEmbedder loads the encoder model, vocabulary and projection weights.
func NewEmbedder(modelPath, vocabPath, projectionPath string) (*Embedder, error) {
	sess, err := newSession(modelPath)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	if sess.outputRank != 3 {
		sess.close()
		return nil, fmt.Errorf("embedder: %s is not a token-state encoder", modelPath)
	}

	tok, err := loadWordpiece(vocabPath)
	if err != nil {
		sess.close()
		return nil, fmt.Errorf("embedder: %w", err)
	}

	proj, err := loadProjection(projectionPath)
	if err != nil {
		sess.close()
		return nil, fmt.Errorf("embedder: %w", err)
	}
	if int64(proj.inDim) != sess.lastDim {
		sess.close()
		return nil, fmt.Errorf("embedder: encoder width %d != projection input %d",
			sess.lastDim, proj.inDim)
	}
	return &Embedder{sess: sess, tok: tok, proj: proj}, nil
}

// EmbedBatch returns one embedding vector per input text.
func (e *Embedder) EmbedBatch(texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	seqs := make([]encoded, len(texts))
	for i, t := range texts {
		seqs[i] = e.tok.encode(t)
	}
	b := e.tok.pack(seqs)

	hidden, err := e.sess.run(b)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	dim := e.sess.lastDim
	out := make([][]float32, b.size)
	for i := int64(0); i < b.size; i++ {
		pooled := meanPool(hidden, b.attentionMask, i, b.seqLen, dim)
		out[i] = e.proj.apply(pooled)
	}
	return out, nil
}

// Close releases the ONNX session.
func (e *Embedder) Close() error {
	return e.sess.close()
}

// meanPool averages the token states of sample i over its non-padding
// positions.
func meanPool(hidden []float32, mask []int64, i, seqLen, dim int64) []float32 {
	out := make([]float32, dim)
	maskOff := i * seqLen
	hiddenOff := i * seqLen * dim

	var count float32
	for s := int64(0); s < seqLen; s++ {
		if mask[maskOff+s] != 1 {
			continue
		}
		count++
		tokOff := hiddenOff + s*dim
		for d := int64(0); d < dim; d++ {
			out[d] += hidden[tokOff+d]
		}
	}
	if count == 0 {
		return out
	}
	inv := 1.0 / count
	for d := range out {
		out[d] *= inv
	}
	return out
}
