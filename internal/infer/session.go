// Package infer runs local ONNX inference for the two model-backed
// classifier variants: a sentence-embedding encoder for similarity scoring
// and an NLI cross-encoder for zero-shot entailment.
package infer

import (
	"fmt"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ortEnv guards process-wide ONNX Runtime initialization.
var ortEnv struct {
	once sync.Once
	err  error
}

func initRuntime(libPath string) error {
	ortEnv.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// session wraps a DynamicAdvancedSession for BERT-family models. It serves
// two output shapes: [batch, seq, hidden] token states (encoders) and
// [batch, labels] logits (sequence classifiers).
type session struct {
	sess       *ort.DynamicAdvancedSession
	inputNames []string
	outputName string
	outputRank int
	lastDim    int64 // hidden size or label count, from the model metadata
}

// newSession loads an ONNX model. The runtime shared library is expected
// next to the model file, matching how model bundles are distributed.
func newSession(modelPath string) (*session, error) {
	libPath := filepath.Join(filepath.Dir(modelPath), "libonnxruntime.so")
	if err := initRuntime(libPath); err != nil {
		return nil, fmt.Errorf("onnx: initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: read model info for %s: %w", modelPath, err)
	}

	have := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		have[in.Name] = true
	}
	required := []string{"input_ids", "attention_mask", "token_type_ids"}
	for _, name := range required {
		if !have[name] {
			return nil, fmt.Errorf("onnx: model %s missing input %q", modelPath, name)
		}
	}

	if len(outputs) == 0 {
		return nil, fmt.Errorf("onnx: model %s has no outputs", modelPath)
	}
	out := outputs[0]
	rank := len(out.Dimensions)
	if rank != 2 && rank != 3 {
		return nil, fmt.Errorf("onnx: unsupported output rank %d in %s", rank, modelPath)
	}
	lastDim := out.Dimensions[rank-1]
	if lastDim <= 0 {
		return nil, fmt.Errorf("onnx: dynamic output width in %s", modelPath)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(4)
	opts.SetInterOpNumThreads(1)

	sess, err := ort.NewDynamicAdvancedSession(modelPath, required, []string{out.Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("onnx: create session: %w", err)
	}
	return &session{
		sess:       sess,
		inputNames: required,
		outputName: out.Name,
		outputRank: rank,
		lastDim:    lastDim,
	}, nil
}

// run executes one inference call over a packed batch and returns the flat
// output tensor data.
func (s *session) run(b batch) ([]float32, error) {
	inShape := ort.NewShape(b.size, b.seqLen)

	tIDs, err := ort.NewTensor(inShape, b.inputIDs)
	if err != nil {
		return nil, fmt.Errorf("onnx: input_ids tensor: %w", err)
	}
	defer tIDs.Destroy()

	tMask, err := ort.NewTensor(inShape, b.attentionMask)
	if err != nil {
		return nil, fmt.Errorf("onnx: attention_mask tensor: %w", err)
	}
	defer tMask.Destroy()

	tTypes, err := ort.NewTensor(inShape, b.tokenTypeIDs)
	if err != nil {
		return nil, fmt.Errorf("onnx: token_type_ids tensor: %w", err)
	}
	defer tTypes.Destroy()

	var outShape ort.Shape
	if s.outputRank == 3 {
		outShape = ort.NewShape(b.size, b.seqLen, s.lastDim)
	} else {
		outShape = ort.NewShape(b.size, s.lastDim)
	}
	tOut, err := ort.NewEmptyTensor[float32](outShape)
	if err != nil {
		return nil, fmt.Errorf("onnx: output tensor: %w", err)
	}
	defer tOut.Destroy()

	if err := s.sess.Run([]ort.Value{tIDs, tMask, tTypes}, []ort.Value{tOut}); err != nil {
		return nil, fmt.Errorf("onnx: inference: %w", err)
	}

	src := tOut.GetData()
	out := make([]float32, len(src))
	copy(out, src)
	return out, nil
}

func (s *session) close() error {
	return s.sess.Destroy()
}
