package cmd

import (
	"os"
	"path/filepath"

	"github.com/nvr-ai/go-yolo/util"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newDirCommand(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "dir <path>",
		Short: "Detect objects in every image of a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			if output == "" {
				output = filepath.Join(dir, "detected")
			}

			files, err := util.LoadDirectoryImageFiles(dir)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return errors.Errorf("no images found in %s", dir)
			}
			if err := os.MkdirAll(output, 0o755); err != nil {
				return errors.Wrapf(err, "failed to create output directory %s", output)
			}

			detector, err := a.detector()
			if err != nil {
				return err
			}
			defer detector.Close()

			failed := 0
			for _, f := range files {
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				out := util.OutputPath(f.Path, output)
				_, detections, err := detectFile(cmd.Context(), detector, f.Path, out)
				if err != nil {
					failed++
					a.logger.Warnw("skipping image", "path", f.Path, "error", err)
					continue
				}
				a.logger.Infow("image saved", "input", f.Path, "output", out, "detections", len(detections))
			}

			a.logger.Infow("directory done", "images", len(files), "failed", failed, "output", output)
			if failed == len(files) {
				return errors.Errorf("all %d images failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "directory for annotated images (default: <path>/detected)")
	return cmd
}
