package main

import (
	"os"

	"github.com/nvr-ai/go-yolo/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
