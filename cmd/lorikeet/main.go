// Command lorikeet is the speech pipeline CLI: voice-activity segmentation,
// mel-spectrogram feature inspection, and transcript evaluation.
//
// Usage:
//
//	lorikeet [flags] <command> [args]
//
// Commands:
//
//	segments - detect speech segments in a WAV file
//	features - compute mel-spectrogram statistics for a WAV file
//	eval     - score a hypothesis transcript against a reference
package main

import (
	"fmt"
	"os"

	"github.com/lorikeet-ml/lorikeet/cmd/lorikeet/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
