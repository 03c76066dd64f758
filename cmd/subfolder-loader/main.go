package main

import (
	"os"

	"github.com/rdomunky/comfyui-subfolderimageloader/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
