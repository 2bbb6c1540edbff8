// tensorstream is a CLI tool for converting raw media streams into tensor
// streams.
//
// It reads raw video, audio, or text frames from a file, converts them
// into tensor buffers, optionally re-batches them through an aggregation
// window and runs a numeric backend, and dumps the resulting stream to
// disk.
//
// Usage:
//
//	tensorstream run --config pipeline.yaml
package main

import (
	"os"

	"github.com/haivivi/tensorstream/cmd/tensorstream/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
