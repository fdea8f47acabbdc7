// Package video - Real-time detection over a camera or video file with an FPS overlay.
package video

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/nvr-ai/go-yolo/inference/detectors"
	"github.com/nvr-ai/go-yolo/profiler"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

const (
	// InitialFPS seeds the smoothed frame rate before the first frame is timed.
	InitialFPS = 0.3
	// DefaultWindowName is the title of the display window.
	DefaultWindowName = "video"
	// DefaultCodec is the FourCC used for the output video.
	DefaultCodec = "MJPG"
	// QuitKey stops the loop when pressed in the display window.
	QuitKey = 'q'
)

// Config describes the capture source and where frames go.
type Config struct {
	// Source is a video file path or a camera index such as "0".
	Source string `json:"source" yaml:"source"`
	// Output is an optional video file the annotated frames are written to.
	Output string `json:"output" yaml:"output"`
	// Codec is the FourCC of Output (default: MJPG).
	Codec string `json:"codec" yaml:"codec"`
	// Show displays frames in a resizable window.
	Show bool `json:"show" yaml:"show"`
	// WindowName is the window title (default: video).
	WindowName string `json:"window_name" yaml:"window_name"`
	// MaxFrames stops the loop after this many frames when positive.
	MaxFrames int `json:"max_frames" yaml:"max_frames"`
}

// FrameDetector detects and draws on one frame.
type FrameDetector interface {
	DetectAndDraw(ctx context.Context, img image.Image) (image.Image, []detectors.Detection, error)
}

// ParseSource returns the camera index for an integer source and the path otherwise.
func ParseSource(source string) interface{} {
	if source == "" {
		return 0
	}
	if id, err := strconv.Atoi(source); err == nil && id >= 0 {
		return id
	}
	return source
}

// SmoothFPS averages the previous frame rate with the rate implied by the last frame.
//
// Arguments:
//   - fps: The previous smoothed rate.
//   - elapsed: The time the last frame took.
//
// Returns:
//   - float64: The new rate; fps unchanged when elapsed is not positive.
func SmoothFPS(fps float64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return fps
	}
	return (fps + 1/elapsed.Seconds()) / 2
}

// FormatFPS returns the overlay text for a frame rate.
func FormatFPS(fps float64) string {
	return fmt.Sprintf("fps= %.2f", fps)
}

// Stats are the totals of a finished run.
type Stats struct {
	Frames     int
	Detections int
	Errors     int
	FPS        float64
}

// Run reads frames until the stream ends, the quit key is pressed or ctx is cancelled.
//
// Every frame is converted to an image, passed through the detector, overlaid with the
// smoothed frame rate and shown or written. A frame whose detection fails is logged and
// shown unmodified.
//
// Arguments:
//   - ctx: Stops the loop when cancelled.
//   - cfg: The source and sinks.
//   - detector: Detects and draws on each frame.
//   - logger: The logger; nil disables logging.
//
// Returns:
//   - Stats: Totals of the run.
//   - error: If the source or output cannot be opened.
func Run(ctx context.Context, cfg Config, detector FrameDetector, logger *zap.SugaredLogger) (Stats, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if cfg.WindowName == "" {
		cfg.WindowName = DefaultWindowName
	}
	if cfg.Codec == "" {
		cfg.Codec = DefaultCodec
	}

	source := ParseSource(cfg.Source)
	capture, err := gocv.OpenVideoCapture(source)
	if err != nil {
		return Stats{}, errors.Wrapf(err, "failed to open video source %v", source)
	}
	defer capture.Close()

	var writer *gocv.VideoWriter
	if cfg.Output != "" {
		rate := capture.Get(gocv.VideoCaptureFPS)
		if rate <= 0 {
			rate = 25
		}
		width := int(capture.Get(gocv.VideoCaptureFrameWidth))
		height := int(capture.Get(gocv.VideoCaptureFrameHeight))
		writer, err = gocv.VideoWriterFile(cfg.Output, cfg.Codec, rate, width, height, true)
		if err != nil {
			return Stats{}, errors.Wrapf(err, "failed to open video writer %s", cfg.Output)
		}
		defer writer.Close()
	}

	var window *gocv.Window
	if cfg.Show {
		window = gocv.NewWindow(cfg.WindowName)
		defer window.Close()
	}

	prof := profiler.New(profiler.Options{}, logger)
	stats := Stats{FPS: InitialFPS}
	var fps atomic.Uint64
	fps.Store(math.Float64bits(InitialFPS))
	prof.AddMetricsCollector(profiler.CollectorFunc(func() map[string]float64 {
		return map[string]float64{"fps": math.Float64frombits(fps.Load())}
	}))
	prof.Start(ctx)
	defer prof.Stop()

	frame := gocv.NewMat()
	defer frame.Close()

	logger.Infow("video started", "source", source, "output", cfg.Output, "show", cfg.Show)

	for cfg.MaxFrames <= 0 || stats.Frames < cfg.MaxFrames {
		if ctx.Err() != nil {
			logger.Infow("video cancelled", "frames", stats.Frames)
			break
		}

		start := time.Now()
		if ok := capture.Read(&frame); !ok || frame.Empty() {
			logger.Infow("end of stream", "source", source, "frames", stats.Frames)
			break
		}

		out, n, err := processFrame(ctx, frame, detector, prof)
		if err != nil {
			stats.Errors++
			logger.Warnw("frame detection failed", "frame", stats.Frames, "error", err)
		}
		stats.Detections += n

		stats.FPS = SmoothFPS(stats.FPS, time.Since(start))
		fps.Store(math.Float64bits(stats.FPS))
		prof.RecordDuration("frame", time.Since(start))

		gocv.PutText(&out, FormatFPS(stats.FPS), image.Pt(0, 40), gocv.FontHersheySimplex, 1,
			color.RGBA{G: 255}, 2)

		if writer != nil {
			if err := writer.Write(out); err != nil {
				logger.Warnw("failed to write frame", "error", err)
			}
		}

		quit := false
		if window != nil {
			window.IMShow(out)
			quit = window.WaitKey(1)&0xff == QuitKey
		}
		if out.Ptr() != frame.Ptr() {
			out.Close()
		}
		stats.Frames++

		if quit {
			logger.Infow("quit requested", "frames", stats.Frames)
			break
		}
	}

	logger.Infow("video finished",
		"frames", stats.Frames,
		"detections", stats.Detections,
		"errors", stats.Errors,
		"fps", FormatFPS(stats.FPS),
	)
	return stats, nil
}

// processFrame runs detection on a BGR frame. The returned Mat is frame itself when there
// is nothing to draw; otherwise the caller owns and must close it.
func processFrame(
	ctx context.Context,
	frame gocv.Mat,
	detector FrameDetector,
	prof *profiler.Profiler,
) (gocv.Mat, int, error) {
	img, err := frame.ToImage()
	if err != nil {
		return frame, 0, errors.Wrap(err, "failed to convert frame")
	}

	done := prof.StartOperation("detect")
	out, detections, err := detector.DetectAndDraw(ctx, img)
	done()
	if err != nil || len(detections) == 0 {
		return frame, 0, err
	}

	mat, err := gocv.ImageToMatRGB(out)
	if err != nil {
		return frame, len(detections), errors.Wrap(err, "failed to convert annotated frame")
	}
	return mat, len(detections), nil
}
