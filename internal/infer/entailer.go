package infer

import (
	"fmt"
	"math"
)

// Entailer scores premise/hypothesis pairs with a local NLI cross-encoder.
// The entailment logit sits last in both the standard 3-way
// (contradiction, neutral, entailment) head and 2-way cross-encoder heads.
type Entailer struct {
	sess *session
	tok  *wordpiece
}

// NewEntailer loads the cross-encoder model and vocabulary.
func NewEntailer(modelPath, vocabPath string) (*Entailer, error) {
	sess, err := newSession(modelPath)
	if err != nil {
		return nil, fmt.Errorf("entailer: %w", err)
	}
	if sess.outputRank != 2 {
		sess.close()
		return nil, fmt.Errorf("entailer: %s is not a sequence classifier", modelPath)
	}

	tok, err := loadWordpiece(vocabPath)
	if err != nil {
		sess.close()
		return nil, fmt.Errorf("entailer: %w", err)
	}
	return &Entailer{sess: sess, tok: tok}, nil
}

// Entail returns the entailment probability of each hypothesis against the
// premise. One pair per hypothesis is scored in a single batch; each pair's
// probability is the softmax of its NLI logits at the entailment position.
func (n *Entailer) Entail(premise string, hypotheses []string) ([]float64, error) {
	if len(hypotheses) == 0 {
		return nil, nil
	}
	seqs := make([]encoded, len(hypotheses))
	for i, h := range hypotheses {
		seqs[i] = n.tok.encodePair(premise, h)
	}
	b := n.tok.pack(seqs)

	logits, err := n.sess.run(b)
	if err != nil {
		return nil, fmt.Errorf("entailer: %w", err)
	}

	k := n.sess.lastDim
	entail := k - 1
	out := make([]float64, len(hypotheses))
	for i := range hypotheses {
		row := logits[int64(i)*k : (int64(i)+1)*k]
		out[i] = softmaxAt(row, entail)
	}
	return out, nil
}

// Close releases the ONNX session.
func (n *Entailer) Close() error {
	return n.sess.close()
}

// softmaxAt computes softmax(row)[idx] with the usual max-shift for
// numerical stability.
func softmaxAt(row []float32, idx int64) float64 {
	max := row[0]
	for _, v := range row[1:] {
		if v > max {
			max = v
		}
	}
	var sum float64
	for _, v := range row {
		sum += math.Exp(float64(v - max))
	}
	return math.Exp(float64(row[idx]-max)) / sum
}
