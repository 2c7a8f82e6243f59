package infer

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const maxSeqLen = 256

// wordpiece is a BERT-style tokenizer: basic tokenization (lowercase,
// accent stripping, punctuation splitting) followed by greedy WordPiece
// decomposition against a vocab.txt vocabulary.
type wordpiece struct {
	tokenToID map[string]int64
	unkID     int64
	padID     int64
	clsID     int64
	sepID     int64
}

// loadWordpiece reads a vocab.txt file; the 0-indexed line number is the
// token ID.
func loadWordpiece(path string) (*wordpiece, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wordpiece: %w", err)
	}
	defer f.Close()

	w := &wordpiece{tokenToID: make(map[string]int64, 32000)}
	scanner := bufio.NewScanner(f)
	n := int64(0)
	for scanner.Scan() {
		w.tokenToID[scanner.Text()] = n
		n++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("wordpiece: read %s: %w", path, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("wordpiece: empty vocabulary %s", path)
	}

	for _, s := range []struct {
		tok  string
		dest *int64
	}{
		{"[PAD]", &w.padID},
		{"[UNK]", &w.unkID},
		{"[CLS]", &w.clsID},
		{"[SEP]", &w.sepID},
	} {
		id, ok := w.tokenToID[s.tok]
		if !ok {
			return nil, fmt.Errorf("wordpiece: vocabulary missing %s", s.tok)
		}
		*s.dest = id
	}
	return w, nil
}

// encoded is one ID sequence ready for inference, unpadded.
type encoded struct {
	ids     []int64
	typeIDs []int64
}

// encode produces [CLS] text [SEP], truncated to maxSeqLen.
func (w *wordpiece) encode(text string) encoded {
	toks := w.subTokenIDs(text)
	if len(toks) > maxSeqLen-2 {
		toks = toks[:maxSeqLen-2]
	}
	ids := make([]int64, 0, len(toks)+2)
	ids = append(ids, w.clsID)
	ids = append(ids, toks...)
	ids = append(ids, w.sepID)
	return encoded{ids: ids, typeIDs: make([]int64, len(ids))}
}

// encodePair produces [CLS] a [SEP] b [SEP] with segment IDs, truncating
// the longer side first until the pair fits.
func (w *wordpiece) encodePair(a, b string) encoded {
	ta := w.subTokenIDs(a)
	tb := w.subTokenIDs(b)
	for len(ta)+len(tb) > maxSeqLen-3 {
		if len(ta) >= len(tb) {
			ta = ta[:len(ta)-1]
		} else {
			tb = tb[:len(tb)-1]
		}
	}

	ids := make([]int64, 0, len(ta)+len(tb)+3)
	typeIDs := make([]int64, 0, cap(ids))
	ids = append(ids, w.clsID)
	typeIDs = append(typeIDs, 0)
	for _, id := range ta {
		ids = append(ids, id)
		typeIDs = append(typeIDs, 0)
	}
	ids = append(ids, w.sepID)
	typeIDs = append(typeIDs, 0)
	for _, id := range tb {
		ids = append(ids, id)
		typeIDs = append(typeIDs, 1)
	}
	ids = append(ids, w.sepID)
	typeIDs = append(typeIDs, 1)
	return encoded{ids: ids, typeIDs: typeIDs}
}

// batch packs encoded sequences into flat tensors padded to the longest
// sequence present.
type batch struct {
	inputIDs      []int64
	attentionMask []int64
	tokenTypeIDs  []int64
	size          int64
	seqLen        int64
}

func (w *wordpiece) pack(seqs []encoded) batch {
	maxLen := 0
	for _, s := range seqs {
		if len(s.ids) > maxLen {
			maxLen = len(s.ids)
		}
	}
	n := len(seqs)
	total := n * maxLen

	b := batch{
		inputIDs:      make([]int64, total),
		attentionMask: make([]int64, total),
		tokenTypeIDs:  make([]int64, total),
		size:          int64(n),
		seqLen:        int64(maxLen),
	}
	for i, s := range seqs {
		off := i * maxLen
		copy(b.inputIDs[off:], s.ids)
		copy(b.tokenTypeIDs[off:], s.typeIDs)
		for j := range s.ids {
			b.attentionMask[off+j] = 1
		}
		for j := len(s.ids); j < maxLen; j++ {
			b.inputIDs[off+j] = w.padID
		}
	}
	return b
}

// subTokenIDs runs basic tokenization then WordPiece and returns token IDs.
func (w *wordpiece) subTokenIDs(text string) []int64 {
	var out []int64
	for _, word := range basicTokenize(text) {
		out = append(out, w.wordpieceWord(word)...)
	}
	return out
}

func (w *wordpiece) wordpieceWord(word string) []int64 {
	runes := []rune(word)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) > 200 {
		return []int64{w.unkID}
	}

	var ids []int64
	start := 0
	for start < len(runes) {
		end := len(runes)
		matched := int64(-1)
		for end > start {
			sub := string(runes[start:end])
			if start > 0 {
				sub = "##" + sub
			}
			if id, ok := w.tokenToID[sub]; ok {
				matched = id
				break
			}
			end--
		}
		if matched < 0 {
			return []int64{w.unkID}
		}
		ids = append(ids, matched)
		start = end
	}
	return ids
}

// basicTokenize lowercases, strips accents and control characters, and
// splits on whitespace and punctuation, matching BERT's BasicTokenizer.
func basicTokenize(text string) []string {
	var cleaned strings.Builder
	cleaned.Grow(len(text))
	for _, r := range text {
		switch {
		case r == 0 || r == 0xFFFD || (unicode.IsControl(r) && r != '\t' && r != '\n' && r != '\r'):
		case unicode.IsSpace(r):
			cleaned.WriteRune(' ')
		default:
			cleaned.WriteRune(r)
		}
	}

	lowered := strings.ToLower(cleaned.String())

	var stripped strings.Builder
	stripped.Grow(len(lowered))
	for _, r := range norm.NFD.String(lowered) {
		if unicode.In(r, unicode.Mn) {
			continue
		}
		stripped.WriteRune(r)
	}

	var tokens []string
	for _, word := range strings.Fields(stripped.String()) {
		tokens = append(tokens, splitPunct(word)...)
	}
	return tokens
}

func splitPunct(word string) []string {
	var tokens []string
	var cur strings.Builder
	for _, r := range word {
		if isPunct(r) {
			if cur.Len() > 0 {
				tokens = append(tokens, cur.String())
				cur.Reset()
			}
			tokens = append(tokens, string(r))
			continue
		}
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

func isPunct(r rune) bool {
	// BERT counts the ASCII symbol ranges as punctuation even where
	// unicode.IsPunct does not (e.g. '$', '+').
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) ||
		(r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}
