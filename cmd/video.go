package cmd

import (
	"github.com/nvr-ai/go-yolo/video"
	"github.com/spf13/cobra"
)

func newVideoCommand(a *app) *cobra.Command {
	cfg := video.Config{Show: true}

	cmd := &cobra.Command{
		Use:   "video [source]",
		Short: "Detect objects in a video file or camera stream (press q to quit)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Source = "0"
			if len(args) == 1 {
				cfg.Source = args[0]
			}

			detector, err := a.detector()
			if err != nil {
				return err
			}
			defer detector.Close()

			_, err = video.Run(cmd.Context(), cfg, detector, a.logger)
			return err
		},
	}

	cmd.Flags().StringVarP(&cfg.Output, "output", "o", "", "write annotated frames to this video file")
	cmd.Flags().StringVar(&cfg.Codec, "codec", video.DefaultCodec, "FourCC of the output video")
	cmd.Flags().BoolVar(&cfg.Show, "show", true, "display frames in a window")
	cmd.Flags().IntVar(&cfg.MaxFrames, "max-frames", 0, "stop after this many frames (0: no limit)")
	return cmd
}
