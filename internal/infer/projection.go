package infer

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// tensorMeta mirrors one entry of a safetensors JSON header. The header's
// __metadata__ key, when present, decodes to a zero value and is ignored.
type tensorMeta struct {
	Dtype   string `json:"dtype"`
	Shape   []int  `json:"shape"`
	Offsets [2]int `json:"data_offsets"`
}

// projection is the bias-free dense layer a sentence-embedding bundle
// ships as its 2_Dense module, taking pooled encoder states down to the
// final embedding width.
type projection struct {
	rows   [][]float32 // one weight row per output dimension
	inDim  int
	outDim int
}

// loadProjection decodes a safetensors file carrying one F32
// "linear.weight" tensor: 8 little-endian bytes of header length, the JSON
// header, then the packed tensor data.
func loadProjection(path string) (*projection, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("projection: %w", err)
	}
	if len(blob) < 8 {
		return nil, fmt.Errorf("projection: %s is not a safetensors file", path)
	}
	hdrLen := binary.LittleEndian.Uint64(blob[:8])
	if hdrLen > uint64(len(blob)-8) {
		return nil, fmt.Errorf("projection: %s header overruns the file", path)
	}

	var tensors map[string]tensorMeta
	if err := json.Unmarshal(blob[8:8+hdrLen], &tensors); err != nil {
		return nil, fmt.Errorf("projection: decode header: %w", err)
	}
	meta, ok := tensors["linear.weight"]
	if !ok {
		return nil, fmt.Errorf("projection: %s carries no linear.weight tensor", path)
	}
	if meta.Dtype != "F32" || len(meta.Shape) != 2 {
		return nil, fmt.Errorf("projection: linear.weight must be a 2D F32 tensor, got %s %v", meta.Dtype, meta.Shape)
	}

	outDim, inDim := meta.Shape[0], meta.Shape[1]
	base := 8 + int(hdrLen)
	lo, hi := base+meta.Offsets[0], base+meta.Offsets[1]
	if lo < base || hi > len(blob) || hi-lo != outDim*inDim*4 {
		return nil, fmt.Errorf("projection: tensor data inconsistent with shape %v", meta.Shape)
	}

	flat := blob[lo:hi]
	rows := make([][]float32, outDim)
	for r := range rows {
		row := make([]float32, inDim)
		for c := range row {
			off := (r*inDim + c) * 4
			row[c] = math.Float32frombits(binary.LittleEndian.Uint32(flat[off:]))
		}
		rows[r] = row
	}
	return &projection{rows: rows, inDim: inDim, outDim: outDim}, nil
}

// apply multiplies one pooled vector through the layer.
func (p *projection) apply(vec []float32) []float32 {
	out := make([]float32, p.outDim)
	for r, row := range p.rows {
		var acc float32
		for c, w := range row {
			acc += w * vec[c]
		}
		out[r] = acc
	}
	return out
}
