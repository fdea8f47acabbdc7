package cmd

import (
	"image"
	"strings"

	"github.com/nvr-ai/go-yolo/benchmark"
	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/util"
	"github.com/spf13/cobra"
)

func newBenchmarkCommand(a *app) *cobra.Command {
	var (
		sample      string
		output      string
		resolutions []string
		formats     []string
		iterations  int
		warmups     int
	)

	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Measure decode and detection time across camera resolutions and image formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sizes := make([]images.Resolution, 0, len(resolutions))
			for _, s := range resolutions {
				r, err := images.ParseResolution(s)
				if err != nil {
					return err
				}
				sizes = append(sizes, r)
			}
			encodings := make([]images.ImageFormat, 0, len(formats))
			for _, f := range formats {
				format, err := images.FormatFromPath("frame." + strings.TrimPrefix(f, "."))
				if err != nil {
					return err
				}
				encodings = append(encodings, format)
			}

			var source image.Image
			if sample != "" {
				img, err := util.ReadImage(sample)
				if err != nil {
					return err
				}
				source = img
			}

			detector, err := a.detector()
			if err != nil {
				return err
			}
			defer detector.Close()

			suite := benchmark.NewSuite(detector, source, output, a.logger)
			suite.AddScenario(benchmark.GenerateScenarios(sizes, encodings, iterations, warmups)...)
			if _, err := suite.RunAllScenarios(cmd.Context()); err != nil {
				return err
			}
			_, _, err = suite.SaveResults()
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&sample, "sample", "", "frame to resize for every scenario (default: synthetic gradient)")
	f.StringVarP(&output, "output", "o", "benchmark_results", "directory for the JSON and CSV results")
	f.StringSliceVar(&resolutions, "resolutions", []string{"HD 720p", "Full HD 1080p", "4K UHD"},
		"camera resolution names or WIDTHxHEIGHT sizes")
	f.StringSliceVar(&formats, "formats", []string{"jpeg", "webp"}, "frame encodings")
	f.IntVar(&iterations, "iterations", 50, "timed iterations per scenario")
	f.IntVar(&warmups, "warmup", 5, "untimed iterations per scenario")
	return cmd
}
