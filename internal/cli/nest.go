package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgallion1/studykit/internal/outline"
)

var nestCmd = &cobra.Command{
	Use:   "nest <index.json> [output.json]",
	Short: "Convert the flat section index into a nested tree",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := args[0]
		out := filepath.Join(filepath.Dir(in), "index_nested.json")
		if len(args) > 1 {
			out = args[1]
		}

		idx, err := outline.ReadIndexFile(in)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(outline.Nest(idx), "", "  ")
		if err != nil {
			return fmt.Errorf("encode nested index: %w", err)
		}
		if err := os.WriteFile(out, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("write nested index: %w", err)
		}
		printPaths(cmd.OutOrStdout(), "wrote", []string{out})
		return nil
	},
}

func init() {
	rootCmd.AddCommand(nestCmd)
}
