package detections

import (
	"context"
	"fmt"
	"image"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Tutortoise/object-detection-service/models"
)

type Options struct {
	ModelPath      string
	LibraryPath    string
	PoolSize       int
	IntraOpThreads int
	AcquireTimeout time.Duration
	InputSize      int
	ConfThreshold  float32
	IoUThreshold   float32
	MaxDetections  int
	WarmUp         bool
}

func (o Options) withDefaults() Options {
	if o.PoolSize <= 0 {
		o.PoolSize = DefaultPoolSize
	}
	if o.AcquireTimeout <= 0 {
		o.AcquireTimeout = DefaultAcquireTimeout
	}
	if o.InputSize <= 0 {
		o.InputSize = DefaultInputSize
	}
	if o.MaxDetections <= 0 {
		o.MaxDetections = DefaultMaxDetections
	}
	return o
}

type loadedModel struct {
	spec   modelSpec
	labels []string
	pool   *SessionPool
}

// ModelInfo describes a loaded model.
type ModelInfo struct {
	Path       string
	InputName  string
	OutputName string
	InputSize  int
	Classes    int
	Anchors    int
	Labels     []string
}

// Provider runs a YOLO detection model through ONNX Runtime. The model is
// loaded on first use; concurrent first callers wait for a single load, and a
// failed load is retried by the next caller.
type Provider struct {
	opts   Options
	log    *zap.Logger
	mu     sync.Mutex
	loaded atomic.Pointer[loadedModel]
	open   func() (*loadedModel, error)

	closed         bool
	retired        *SessionPool
	destroyRuntime func() error
}

func NewProvider(opts Options, log *zap.Logger) *Provider {
	p := &Provider{
		opts: opts.withDefaults(),
		log:  log,
	}
	p.open = p.openModel
	p.destroyRuntime = DestroyRuntime
	return p
}

func (p *Provider) Load(ctx context.Context) error {
	_, err := p.model(ctx)
	return err
}

func (p *Provider) Loaded() bool {
	return p.loaded.Load() != nil
}

func (p *Provider) model(ctx context.Context) (*loadedModel, error) {
	if m := p.loaded.Load(); m != nil {
		return m, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if m := p.loaded.Load(); m != nil {
		return m, nil
	}
	if p.closed {
		return nil, fmt.Errorf("load model %s: %w", p.opts.ModelPath, ErrPoolClosed)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	m, err := p.open()
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", p.opts.ModelPath, err)
	}
	p.loaded.Store(m)

	p.log.Info("model loaded",
		zap.String("path", p.opts.ModelPath),
		zap.Int("input_size", m.spec.InputSize),
		zap.Int("classes", m.spec.NumClasses()),
		zap.Int("pool_size", m.pool.Size()),
		zap.Duration("took", time.Since(start)),
	)
	return m, nil
}

func (p *Provider) openModel() (*loadedModel, error) {
	if err := InitializeRuntime(p.opts.LibraryPath); err != nil {
		return nil, err
	}
	p.log.Debug("onnxruntime initialized", zap.Any("cpu_features", CPUFeatures()))

	labels, err := readClassNames(p.opts.ModelPath)
	if err != nil {
		p.log.Warn("falling back to COCO labels", zap.Error(err))
	}
	if len(labels) == 0 {
		labels = COCOLabels
	}

	spec, err := inspectModel(p.opts.ModelPath, p.opts.InputSize, len(labels))
	if err != nil {
		return nil, err
	}
	if spec.NumClasses() != len(labels) {
		p.log.Warn("label count does not match model classes",
			zap.Int("labels", len(labels)),
			zap.Int("classes", spec.NumClasses()),
		)
	}

	threads := intraOpThreads(p.opts.IntraOpThreads, p.opts.PoolSize)
	pool, err := NewSessionPool(p.opts.PoolSize, p.opts.AcquireTimeout, func() (*ModelSession, error) {
		s, err := newModelSession(p.opts.ModelPath, spec, threads)
		if err != nil {
			return nil, err
		}
		if p.opts.WarmUp {
			if err := s.warmUp(); err != nil {
				s.Destroy()
				return nil, fmt.Errorf("warm up session: %w", err)
			}
		}
		return s, nil
	})
	if err != nil {
		return nil, err
	}

	return &loadedModel{spec: spec, labels: labels, pool: pool}, nil
}

// Infer returns the detections for img in source-image pixels, ordered by
// descending confidence.
func (p *Provider) Infer(ctx context.Context, img image.Image, timings *models.ProcessingTimings) ([]models.RawDetection, error) {
	if timings == nil {
		timings = &models.ProcessingTimings{}
	}

	m, err := p.model(ctx)
	if err != nil {
		return nil, err
	}

	session, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire session: %w", err)
	}
	defer m.pool.Release(session)

	return processImage(img, m.spec, session, postprocessOptions{
		confThreshold: p.opts.ConfThreshold,
		iouThreshold:  p.opts.IoUThreshold,
		maxDetections: p.opts.MaxDetections,
	}, timings)
}

// Label resolves a class id to its name. Ids outside the label table resolve
// to their decimal form.
func (p *Provider) Label(classID int) string {
	labels := COCOLabels
	if m := p.loaded.Load(); m != nil {
		labels = m.labels
	}
	if classID < 0 || classID >= len(labels) {
		return strconv.Itoa(classID)
	}
	return labels[classID]
}

func (p *Provider) Stats() models.PoolStats {
	m := p.loaded.Load()
	if m == nil {
		return models.PoolStats{PoolSize: p.opts.PoolSize}
	}
	stats := m.pool.Stats()
	stats.Loaded = true
	return stats
}

func (p *Provider) Info(ctx context.Context) (ModelInfo, error) {
	m, err := p.model(ctx)
	if err != nil {
		return ModelInfo{}, err
	}
	return ModelInfo{
		Path:       p.opts.ModelPath,
		InputName:  m.spec.InputName,
		OutputName: m.spec.OutputName,
		InputSize:  m.spec.InputSize,
		Classes:    m.spec.NumClasses(),
		Anchors:    m.spec.Anchors,
		Labels:     append([]string(nil), m.labels...),
	}, nil
}

// Close releases the session pool and the runtime environment. The provider
// does not load again afterwards. While sessions are still checked out the
// environment is left up; a later Close tears it down once they are back.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if m := p.loaded.Swap(nil); m != nil {
		m.pool.Destroy()
		p.retired = m.pool
	}
	if p.retired != nil {
		if inUse := p.retired.Stats().SessionsInUse; inUse > 0 {
			p.log.Warn("sessions still in use, keeping onnxruntime environment",
				zap.Int("sessions_in_use", inUse),
			)
			return nil
		}
	}
	if err := p.destroyRuntime(); err != nil {
		return fmt.Errorf("destroy onnxruntime environment: %w", err)
	}
	return nil
}
