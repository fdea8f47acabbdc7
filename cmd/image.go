package cmd

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/nvr-ai/go-yolo/inference/detectors"
	"github.com/nvr-ai/go-yolo/util"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gocv.io/x/gocv"
)

// ImagePrompt is printed when the image command is run without a path.
const ImagePrompt = "Input image filename:"

func newImageCommand(a *app) *cobra.Command {
	var (
		output string
		show   bool
	)

	cmd := &cobra.Command{
		Use:   "image [path]",
		Short: "Detect objects in one image",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				var err error
				path, err = promptPath(cmd.InOrStdin(), cmd.OutOrStdout())
				if err != nil {
					return err
				}
			}
			if output == "" {
				output = util.OutputPath(path, "")
			}

			detector, err := a.detector()
			if err != nil {
				return err
			}
			defer detector.Close()

			drawn, detections, err := detectFile(cmd.Context(), detector, path, output)
			if err != nil {
				return err
			}
			printDetections(cmd.OutOrStdout(), detections)
			a.logger.Infow("image saved", "input", path, "output", output, "detections", len(detections))

			if show {
				return showImage(path, drawn)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "annotated image path (default: <name>_detected.<ext>)")
	cmd.Flags().BoolVar(&show, "show", true, "display the annotated image until a key is pressed")
	return cmd
}

// promptPath asks for an image path on r, the way the interactive mode does.
func promptPath(r io.Reader, w io.Writer) (string, error) {
	fmt.Fprint(w, ImagePrompt)
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", errors.Wrap(err, "failed to read image path")
	}
	path := strings.TrimSpace(line)
	if path == "" {
		return "", errors.New("no image path given")
	}
	return path, nil
}

// detectFile reads the input image, runs detection and saves the annotated copy.
func detectFile(ctx context.Context, detector *detectors.Detector, input, output string) (image.Image, []detectors.Detection, error) {
	img, err := util.ReadImage(input)
	if err != nil {
		return nil, nil, err
	}
	drawn, detections, err := detector.DetectAndDraw(ctx, img)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "detection failed for %s", input)
	}
	if err := util.SaveImage(output, drawn); err != nil {
		return nil, nil, err
	}
	return drawn, detections, nil
}

func printDetections(w io.Writer, detections []detectors.Detection) {
	for _, d := range detections {
		fmt.Fprintf(w, "%s (%d, %d) (%d, %d)\n", d.Label(),
			int(d.Box.X1), int(d.Box.Y1), int(d.Box.X2), int(d.Box.Y2))
	}
}

func showImage(title string, img image.Image) error {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return errors.Wrap(err, "failed to convert image for display")
	}
	defer mat.Close()

	window := gocv.NewWindow(title)
	defer window.Close()
	window.IMShow(mat)
	window.WaitKey(0)
	return nil
}
