package infer

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeVocab(t *testing.T, tokens ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vocab.txt")
	if err := os.WriteFile(path, []byte(strings.Join(tokens, "\n")+"\n"), 0644); err != nil {
		t.Fatalf("write vocab: %v", err)
	}
	return path
}

func testVocab(t *testing.T) *wordpiece {
	t.Helper()
	path := writeVocab(t, "[PAD]", "[UNK]", "[CLS]", "[SEP]", "hello", "world", "play", "##ing", "cafe", ",")
	w, err := loadWordpiece(path)
	if err != nil {
		t.Fatalf("loadWordpiece: %v", err)
	}
	return w
}

func TestLoadWordpieceSpecials(t *testing.T) {
	w := testVocab(t)
	if w.padID != 0 || w.unkID != 1 || w.clsID != 2 || w.sepID != 3 {
		t.Fatalf("unexpected special IDs: %d %d %d %d", w.padID, w.unkID, w.clsID, w.sepID)
	}
}

func TestLoadWordpieceMissingSpecial(t *testing.T) {
	path := writeVocab(t, "[PAD]", "[UNK]", "[CLS]")
	if _, err := loadWordpiece(path); err == nil {
		t.Fatalf("expected error for missing [SEP]")
	}
}

func TestEncode(t *testing.T) {
	w := testVocab(t)
	got := w.encode("Hello world")
	want := []int64{2, 4, 5, 3} // [CLS] hello world [SEP]
	if !reflect.DeepEqual(got.ids, want) {
		t.Fatalf("expected %v, got %v", want, got.ids)
	}
	for _, tid := range got.typeIDs {
		if tid != 0 {
			t.Fatalf("single-sequence type IDs must be zero: %v", got.typeIDs)
		}
	}
}

func TestEncodeSubwords(t *testing.T) {
	w := testVocab(t)
	got := w.encode("playing")
	want := []int64{2, 6, 7, 3} // [CLS] play ##ing [SEP]
	if !reflect.DeepEqual(got.ids, want) {
		t.Fatalf("expected %v, got %v", want, got.ids)
	}
}

func TestEncodeUnknownWord(t *testing.T) {
	w := testVocab(t)
	got := w.encode("xyzzy")
	want := []int64{2, 1, 3} // [CLS] [UNK] [SEP]
	if !reflect.DeepEqual(got.ids, want) {
		t.Fatalf("expected %v, got %v", want, got.ids)
	}
}

func TestEncodePairSegments(t *testing.T) {
	w := testVocab(t)
	got := w.encodePair("hello", "world")
	wantIDs := []int64{2, 4, 3, 5, 3} // [CLS] hello [SEP] world [SEP]
	wantTypes := []int64{0, 0, 0, 1, 1}
	if !reflect.DeepEqual(got.ids, wantIDs) {
		t.Fatalf("expected %v, got %v", wantIDs, got.ids)
	}
	if !reflect.DeepEqual(got.typeIDs, wantTypes) {
		t.Fatalf("expected %v, got %v", wantTypes, got.typeIDs)
	}
}

func TestEncodePairTruncates(t *testing.T) {
	w := testVocab(t)
	long := strings.Repeat("hello ", 300)
	got := w.encodePair(long, "world")
	if len(got.ids) != maxSeqLen {
		t.Fatalf("expected truncation to %d, got %d", maxSeqLen, len(got.ids))
	}
	// The shorter side must survive intact.
	if got.ids[len(got.ids)-2] != 5 {
		t.Fatalf("expected world before final [SEP], got %d", got.ids[len(got.ids)-2])
	}
}

func TestPackPadsToLongest(t *testing.T) {
	w := testVocab(t)
	b := w.pack([]encoded{w.encode("hello world"), w.encode("hello")})
	if b.size != 2 || b.seqLen != 4 {
		t.Fatalf("unexpected batch shape %dx%d", b.size, b.seqLen)
	}
	// Second row: [CLS] hello [SEP] [PAD] with attention 1,1,1,0.
	row := b.inputIDs[4:]
	if !reflect.DeepEqual(row, []int64{2, 4, 3, 0}) {
		t.Fatalf("unexpected padded row %v", row)
	}
	if !reflect.DeepEqual(b.attentionMask[4:], []int64{1, 1, 1, 0}) {
		t.Fatalf("unexpected mask %v", b.attentionMask[4:])
	}
}

func TestBasicTokenize(t *testing.T) {
	got := basicTokenize("Hello, Café world!")
	want := []string{"hello", ",", "cafe", "world", "!"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
