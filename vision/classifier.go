package vision

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/nfnt/resize"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/sahyadri-labs/krishirakshak/domain"
)

// DefaultInputSize is the square dimension the exported model expects.
const DefaultInputSize = 224

// Scorer is the opaque scoring capability: given a preprocessed NHWC
// tensor it returns one score per label. Implementations are not safe for
// pipelined calls; the Classifier serializes access.
type Scorer interface {
	Score(ctx context.Context, input []float32) ([]float32, error)
	Close() error
}

// Classifier wraps a Scorer with fixed preprocessing and output
// validation. It owns the scoring engine exclusively for the duration of
// one inference call.
type Classifier struct {
	mu        sync.Mutex
	scorer    Scorer
	inputSize int
}

// NewClassifier creates a Classifier around the given scoring capability.
func NewClassifier(scorer Scorer, inputSize int) *Classifier {
	if inputSize <= 0 {
		inputSize = DefaultInputSize
	}
	return &Classifier{scorer: scorer, inputSize: inputSize}
}

// Predict preprocesses a decoded image, runs the scorer, and returns the
// probability distribution over the label set. A scorer failure or a
// malformed output vector yields domain.ErrPrediction.
func (c *Classifier) Predict(ctx context.Context, img image.Image) ([]float64, error) {
	input := Preprocess(img, c.inputSize)

	c.mu.Lock()
	raw, err := c.scorer.Score(ctx, input)
	c.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrPrediction)
	}
	if len(raw) != len(domain.Labels) {
		return nil, fmt.Errorf("scorer returned %d scores, want %d: %w",
			len(raw), len(domain.Labels), domain.ErrPrediction)
	}

	scores := make([]float64, len(raw))
	for i, v := range raw {
		scores[i] = float64(v)
	}
	return scores, nil
}

// Close releases the underlying scoring engine.
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scorer.Close()
}

// Preprocess applies the model's fixed input transform: nearest-neighbor
// resize to a square, per-channel normalization to [0,1], single-item
// batch in NHWC order.
func Preprocess(img image.Image, size int) []float32 {
	resized := resize.Resize(uint(size), uint(size), img, resize.NearestNeighbor)

	out := make([]float32, size*size*3)
	i := 0
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			out[i] = float32(r>>8) / 255.0
			out[i+1] = float32(g>>8) / 255.0
			out[i+2] = float32(b>>8) / 255.0
			i += 3
		}
	}
	return out
}

// OnnxScorer runs the exported model through onnxruntime. Inference calls
// are serialized; the session must not be run concurrently.
type OnnxScorer struct {
	mu        sync.Mutex
	session   *ort.DynamicAdvancedSession
	inputName string
	outName   string
	inputSize int
	closed    bool
}

// OnnxConfig configures the onnxruntime-backed scorer.
type OnnxConfig struct {
	ModelPath   string
	LibraryPath string
	InputName   string
	OutputName  string
	InputSize   int
}

// NewOnnxScorer initializes the onnxruntime environment (once per
// process) and loads the model artifact. A missing or malformed artifact
// fails here, not at first inference.
func NewOnnxScorer(cfg OnnxConfig) (*OnnxScorer, error) {
	if cfg.InputName == "" {
		cfg.InputName = "input"
	}
	if cfg.OutputName == "" {
		cfg.OutputName = "output"
	}
	if cfg.InputSize <= 0 {
		cfg.InputSize = DefaultInputSize
	}

	if err := initOnnxRuntime(cfg.LibraryPath); err != nil {
		return nil, fmt.Errorf("initialize onnxruntime: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{cfg.InputName}, []string{cfg.OutputName}, nil)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", cfg.ModelPath, err)
	}

	return &OnnxScorer{
		session:   session,
		inputName: cfg.InputName,
		outName:   cfg.OutputName,
		inputSize: cfg.InputSize,
	}, nil
}

var ortInitOnce sync.Once

func initOnnxRuntime(libraryPath string) error {
	var err error
	ortInitOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		err = ort.InitializeEnvironment()
	})
	return err
}

// Score runs one inference pass over a preprocessed NHWC input tensor.
func (o *OnnxScorer) Score(ctx context.Context, input []float32) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil, fmt.Errorf("scorer is closed")
	}

	size := int64(o.inputSize)
	inputTensor, err := ort.NewTensor(ort.NewShape(1, size, size, 3), input)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(domain.Labels))))
	if err != nil {
		return nil, fmt.Errorf("create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	if err := o.session.Run([]ort.Value{inputTensor}, []ort.Value{outputTensor}); err != nil {
		return nil, fmt.Errorf("run inference: %w", err)
	}

	data := outputTensor.GetData()
	out := make([]float32, len(data))
	copy(out, data)
	return out, nil
}

// Close destroys the onnxruntime session.
func (o *OnnxScorer) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	return o.session.Destroy()
}
