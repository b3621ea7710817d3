package detections

import (
	"errors"
	"fmt"
	"image"
	"time"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/Tutortoise/object-detection-service/models"
)

type ModelSession struct {
	Session *ort.AdvancedSession
	Input   *ort.Tensor[float32]
	Output  *ort.Tensor[float32]
}

func (m *ModelSession) Destroy() {
	if m.Session != nil {
		m.Session.Destroy()
	}
	if m.Input != nil {
		m.Input.Destroy()
	}
	if m.Output != nil {
		m.Output.Destroy()
	}
}

func (m *ModelSession) run() error {
	if m.Session == nil {
		return errors.New("session not initialized")
	}
	return m.Session.Run()
}

// warmUp runs one inference on a zeroed input so the first request does not
// pay for lazy allocations inside the runtime.
func (m *ModelSession) warmUp() error {
	clear(m.Input.GetData())
	return m.run()
}

// modelSpec describes the tensors of a YOLOv8-style detection model:
// one square image input and one [1, 4+classes, anchors] output.
type modelSpec struct {
	InputName  string
	OutputName string
	InputSize  int
	Channels   int
	Anchors    int
}

func (s modelSpec) NumClasses() int {
	return s.Channels - 4
}

func inspectModel(modelPath string, inputSize, numClasses int) (modelSpec, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return modelSpec{}, fmt.Errorf("error reading model inputs and outputs: %w", err)
	}
	return resolveSpec(inputs, outputs, inputSize, numClasses)
}

// resolveSpec fills dynamic (non-positive) dimensions from the configured
// input size and the known number of classes.
func resolveSpec(inputs, outputs []ort.InputOutputInfo, inputSize, numClasses int) (modelSpec, error) {
	if len(inputs) != 1 {
		return modelSpec{}, fmt.Errorf("expected 1 model input, got %d", len(inputs))
	}
	if len(outputs) < 1 {
		return modelSpec{}, errors.New("model has no outputs")
	}

	spec := modelSpec{
		InputName:  inputs[0].Name,
		OutputName: outputs[0].Name,
		InputSize:  inputSize,
	}

	in := inputs[0].Dimensions
	if len(in) != 4 {
		return modelSpec{}, fmt.Errorf("expected NCHW input, got shape %v", in)
	}
	if in[1] > 0 && in[1] != 3 {
		return modelSpec{}, fmt.Errorf("expected 3 input channels, got %d", in[1])
	}
	if in[2] > 0 && in[3] > 0 {
		if in[2] != in[3] {
			return modelSpec{}, fmt.Errorf("expected square input, got %dx%d", in[3], in[2])
		}
		spec.InputSize = int(in[2])
	}

	out := outputs[0].Dimensions
	if len(out) != 3 {
		return modelSpec{}, fmt.Errorf("expected [batch, channels, anchors] output, got shape %v", out)
	}
	spec.Channels = int(out[1])
	if spec.Channels <= 0 {
		spec.Channels = 4 + numClasses
	}
	spec.Anchors = int(out[2])
	if spec.Anchors <= 0 {
		spec.Anchors = anchorCount(spec.InputSize)
	}
	if spec.Channels <= 4 {
		return modelSpec{}, fmt.Errorf("output has no class scores: %d channels", spec.Channels)
	}
	return spec, nil
}

// anchorCount is the number of predictions a YOLOv8 head emits for a square
// input: one per grid cell at each stride.
func anchorCount(inputSize int) int {
	n := 0
	for _, s := range strides {
		g := inputSize / s
		n += g * g
	}
	return n
}

func newModelSession(modelPath string, spec modelSpec, threads int) (*ModelSession, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("error creating session options: %w", err)
	}
	defer options.Destroy()

	if err := options.SetIntraOpNumThreads(threads); err != nil {
		return nil, fmt.Errorf("error setting intra-op threads: %w", err)
	}
	if err := options.SetInterOpNumThreads(1); err != nil {
		return nil, fmt.Errorf("error setting inter-op threads: %w", err)
	}

	size := int64(spec.InputSize)
	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, size, size))
	if err != nil {
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(spec.Channels), int64(spec.Anchors)))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("error creating output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{spec.InputName},
		[]string{spec.OutputName},
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	return &ModelSession{
		Session: session,
		Input:   inputTensor,
		Output:  outputTensor,
	}, nil
}

func processImage(img image.Image, spec modelSpec, session *ModelSession, opts postprocessOptions, timings *models.ProcessingTimings) ([]models.RawDetection, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, errors.New("image has no pixels")
	}

	prepStart := time.Now()
	lb := NewLetterbox(bounds.Dx(), bounds.Dy(), spec.InputSize)
	fillTensor(session.Input.GetData(), lb.Apply(img), spec.InputSize)
	timings.Preprocess = time.Since(prepStart)

	inferStart := time.Now()
	if err := session.run(); err != nil {
		return nil, fmt.Errorf("model inference: %w", err)
	}
	timings.Inference = time.Since(inferStart)

	postStart := time.Now()
	dets, err := postprocess(session.Output.GetData(), spec, lb, opts)
	if err != nil {
		return nil, fmt.Errorf("process predictions: %w", err)
	}
	timings.Postprocess = time.Since(postStart)

	return dets, nil
}
