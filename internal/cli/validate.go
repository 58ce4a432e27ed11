package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/sprite-ai/prgate/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate [config-file]",
	Short: "Validate a review-policy file",
	Long: `Parse and validate a review-policy file without contacting GitHub.
Catches schema errors, missing team names, and rules mixing fields from
different kinds.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := config.FilePath
	if len(args) == 1 {
		path = args[0]
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	fmt.Printf("%s is valid: %d rule(s)\n", path, len(cfg.Rules))
	return nil
}
