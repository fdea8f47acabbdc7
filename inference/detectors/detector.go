package detectors

import (
	"context"
	"image"
	"image/color"
	"time"

	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/inference"
	"github.com/nvr-ai/go-yolo/models"
	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/nvr-ai/go-yolo/models/postprocess"
	"github.com/nvr-ai/go-yolo/models/yolov4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Detection is a final detection in source image pixels.
type Detection struct {
	Box       images.Rect `json:"box"`
	Class     int         `json:"class"`
	ClassName string      `json:"class_name"`
	Score     float32     `json:"score"`
}

// Label returns the caption drawn for the detection, e.g. "dog 0.87".
func (d Detection) Label() string {
	return images.FormatLabel(d.ClassName, d.Score)
}

// Info summarizes a loaded detector.
type Info struct {
	Model      model.Name
	Backend    string
	ModelPath  string
	InputSize  int
	NumClasses int
	Anchors    yolov4.Anchors
	Confidence float32
	IoU        float32
}

// Detector runs the full pipeline: letterbox, forward pass, decode, suppress, correct
// and draw. The class list, anchors and network are loaded once and never change.
type Detector struct {
	cfg      Config
	classes  *models.OutputClassSet
	anchors  yolov4.Anchors
	model    model.Model
	backend  inference.Backend
	palette  []color.RGBA
	relevant map[int]bool
	logger   *zap.SugaredLogger
}

// New loads the class list, anchors and network described by cfg.
//
// Arguments:
//   - cfg: The detector configuration.
//   - logger: The logger; nil disables logging.
//
// Returns:
//   - *Detector: The loaded detector. The caller must Close it.
//   - error: If a file is missing or malformed, or the backend fails to load.
func New(cfg Config, logger *zap.SugaredLogger) (*Detector, error) {
	classes, anchors, err := loadBundle(cfg)
	if err != nil {
		return nil, err
	}

	m, err := newModel(cfg, classes, anchors)
	if err != nil {
		return nil, err
	}

	opts := m.Options()
	backend, err := inference.NewBackend(inference.Config{
		Kind:         cfg.Backend,
		ModelPath:    cfg.ModelPath,
		InputWidth:   opts.InputWidth,
		InputHeight:  opts.InputHeight,
		InputNames:   tensorNames(cfg, cfg.InputNames, opts.Inputs),
		OutputNames:  tensorNames(cfg, cfg.OutputNames, opts.Outputs),
		OutputShapes: opts.OutputShapes,
		UseCUDA:      cfg.UseCUDA,
		Provider:     cfg.Provider,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to load backend")
	}

	return build(cfg, classes, anchors, m, backend, logger), nil
}

// NewWithBackend builds a detector around an already loaded backend.
//
// Arguments:
//   - cfg: The detector configuration; the file paths and backend fields are ignored.
//   - classes: The class list.
//   - anchors: The anchors, coarsest scale first; nil uses the YOLOv4 COCO anchors.
//   - backend: The forward pass implementation.
//   - logger: The logger; nil disables logging.
//
// Returns:
//   - *Detector: The detector. Close closes the backend.
//   - error: If the model configuration is invalid.
func NewWithBackend(
	cfg Config,
	classes *models.OutputClassSet,
	anchors yolov4.Anchors,
	backend inference.Backend,
	logger *zap.SugaredLogger,
) (*Detector, error) {
	if classes == nil || classes.Len() == 0 {
		return nil, errors.New("class list is empty")
	}
	if backend == nil {
		return nil, errors.New("backend is nil")
	}
	if anchors == nil {
		anchors = yolov4.DefaultAnchors()
	}
	m, err := newModel(cfg, classes, anchors)
	if err != nil {
		return nil, err
	}
	return build(cfg, classes, anchors, m, backend, logger), nil
}

func loadBundle(cfg Config) (*models.OutputClassSet, yolov4.Anchors, error) {
	var (
		classes *models.OutputClassSet
		anchors yolov4.Anchors
		err     error
	)

	if cfg.ClassesPath != "" {
		classes, err = models.LoadClasses(cfg.ClassesPath)
		if err != nil {
			return nil, nil, err
		}
	} else {
		classes = models.NewOutputClassSet(model.ModelFamilyYOLO, models.YOLOClasses.Names())
	}

	if cfg.AnchorsPath != "" {
		anchors, err = yolov4.LoadAnchors(cfg.AnchorsPath, yolov4.NumScales)
		if err != nil {
			return nil, nil, err
		}
	} else {
		anchors = yolov4.DefaultAnchors()
	}

	return classes, anchors, nil
}

func newModel(cfg Config, classes *models.OutputClassSet, anchors yolov4.Anchors) (model.Model, error) {
	m, err := models.NewModel(model.NewModelArgs{
		Name:        model.ModelNameYOLOv4,
		Path:        cfg.ModelPath,
		Family:      model.ModelFamilyYOLO,
		Inputs:      cfg.InputNames,
		Outputs:     cfg.OutputNames,
		InputWidth:  cfg.InputSize,
		InputHeight: cfg.InputSize,
		NumClasses:  classes.Len(),
		Anchors:     anchors,
		NMS: &postprocess.NMSConfig{
			IoUThreshold:        cfg.IoUThreshold,
			ConfidenceThreshold: cfg.ConfidenceThreshold,
			NumWorkers:          cfg.NMSWorkers,
			MaxDetections:       cfg.MaxDetections,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create model")
	}
	return m, nil
}

// tensorNames returns the model's default names for ONNX Runtime, which needs them. OpenCV
// only gets explicitly configured names and otherwise binds the first input and discovers
// its output layers.
func tensorNames(cfg Config, configured, defaults []string) []string {
	if cfg.Backend == inference.BackendOpenCV {
		return configured
	}
	return defaults
}

func build(
	cfg Config,
	classes *models.OutputClassSet,
	anchors yolov4.Anchors,
	m model.Model,
	backend inference.Backend,
	logger *zap.SugaredLogger,
) *Detector {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	var relevant map[int]bool
	if len(cfg.RelevantClasses) > 0 {
		relevant = make(map[int]bool, len(cfg.RelevantClasses))
		for _, name := range cfg.RelevantClasses {
			if idx, ok := classes.Index(name); ok {
				relevant[idx] = true
			} else {
				logger.Warnw("ignoring unknown relevant class", "class", name)
			}
		}
	}

	d := &Detector{
		cfg:      cfg,
		classes:  classes,
		anchors:  anchors,
		model:    m,
		backend:  backend,
		palette:  images.ClassPalette(classes.Len()),
		relevant: relevant,
		logger:   logger,
	}

	info := d.Info()
	logger.Infow("detector ready",
		"model", info.ModelPath,
		"backend", info.Backend,
		"input_size", info.InputSize,
		"classes", info.NumClasses,
		"confidence", info.Confidence,
		"iou", info.IoU,
	)
	return d
}

// Detect runs steps letterbox through coordinate correction on img.
//
// Arguments:
//   - ctx: Cancels the call before the forward pass.
//   - img: The source image.
//
// Returns:
//   - []Detection: Detections in img pixel coordinates, ordered by class then score. Empty
//     when nothing survives suppression.
//   - error: If preprocessing, the forward pass or decoding fails.
func (d *Detector) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	if img == nil {
		return nil, errors.New("image is nil")
	}

	start := time.Now()
	pre, err := d.model.PreProcess(img)
	if err != nil {
		return nil, errors.Wrap(err, "preprocess failed")
	}
	preprocessed := time.Now()

	outputs, err := d.backend.Forward(ctx, pre.Data)
	if err != nil {
		return nil, errors.Wrap(err, "forward pass failed")
	}
	forwarded := time.Now()

	results, err := d.model.PostProcess(outputs, pre.Letterbox)
	if err != nil {
		return nil, errors.Wrap(err, "postprocess failed")
	}

	detections := make([]Detection, 0, len(results))
	for _, r := range results {
		if d.relevant != nil && !d.relevant[r.Class] {
			continue
		}
		detections = append(detections, Detection{
			Box:       r.Box,
			Class:     r.Class,
			ClassName: d.classes.Name(r.Class),
			Score:     r.Score,
		})
	}

	d.logger.Debugw("detect",
		"detections", len(detections),
		"preprocess", preprocessed.Sub(start),
		"forward", forwarded.Sub(preprocessed),
		"postprocess", time.Since(forwarded),
	)
	return detections, nil
}

// DetectAndDraw runs Detect and draws the detections on a copy of img.
//
// When nothing is detected the original img is returned as is.
//
// Arguments:
//   - ctx: Cancels the call before the forward pass.
//   - img: The source image.
//
// Returns:
//   - image.Image: The annotated copy, or img itself.
//   - []Detection: The detections drawn.
//   - error: If detection fails; img is returned alongside the error.
func (d *Detector) DetectAndDraw(ctx context.Context, img image.Image) (image.Image, []Detection, error) {
	detections, err := d.Detect(ctx, img)
	if err != nil {
		return img, nil, err
	}
	if len(detections) == 0 {
		return img, detections, nil
	}
	return d.Draw(img, detections), detections, nil
}

// Draw renders detections on a copy of img.
func (d *Detector) Draw(img image.Image, detections []Detection) *image.RGBA {
	labels := make([]images.Label, len(detections))
	for i, det := range detections {
		labels[i] = images.Label{
			Box:   det.Box,
			Class: det.Class,
			Text:  det.Label(),
		}
	}
	return images.DrawDetections(img, labels, images.DrawOptions{
		Palette:    d.palette,
		InputWidth: d.model.Options().InputWidth,
	})
}

// Classes returns the class list.
func (d *Detector) Classes() *models.OutputClassSet {
	return d.classes
}

// Info returns a summary of the loaded detector.
func (d *Detector) Info() Info {
	opts := d.model.Options()
	return Info{
		Model:      opts.Name,
		Backend:    d.backend.Name(),
		ModelPath:  d.cfg.ModelPath,
		InputSize:  opts.InputWidth,
		NumClasses: d.classes.Len(),
		Anchors:    d.anchors,
		Confidence: d.cfg.ConfidenceThreshold,
		IoU:        d.cfg.IoUThreshold,
	}
}

// Close releases the backend.
func (d *Detector) Close() error {
	return d.backend.Close()
}
