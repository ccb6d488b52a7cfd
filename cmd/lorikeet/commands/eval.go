package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lorikeet-ml/lorikeet/pkg/eval"
)

var evalCmd = &cobra.Command{
	Use:   "eval REFERENCE HYPOTHESIS",
	Short: "Score a hypothesis transcript against a reference",
	Long: `Compute word error rate (WER) and character error rate (CER)
between two transcript files. Whitespace is collapsed and comparison is
case-insensitive at the word level.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(); err != nil {
			return err
		}

		ref, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		hyp, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}

		fmt.Printf("WER: %.2f%%\n", 100*eval.WER(string(ref), string(hyp)))
		fmt.Printf("CER: %.2f%%\n", 100*eval.CER(string(ref), string(hyp)))
		return nil
	},
}
