package cli

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"
	"github.com/sprite-ai/prgate/internal/config"
	"github.com/sprite-ai/prgate/internal/diff"
	"github.com/sprite-ai/prgate/internal/engine"
)

var rulesCmd = &cobra.Command{
	Use:   "rules [commit-range]",
	Short: "Show which policy rules a local diff would trigger (dry run)",
	Long: `Match the review policy's rule conditions against a local git diff,
without resolving teams or fetching reviews. Useful for previewing which
rules a branch will trip before opening a pull request.

Examples:
  prgate rules                     # HEAD vs parent
  prgate rules main...HEAD         # branch vs main
  git diff | prgate rules -        # pipe any diff`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRules,
}

func init() {
	rulesCmd.Flags().StringP("config", "c", config.FilePath, "path to the review-policy file")
}

func runRules(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	raw, err := getDiff(args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(raw) == "" {
		fmt.Println("No changes.")
		return nil
	}

	cs, err := diff.Parse(raw)
	if err != nil {
		return fmt.Errorf("parsing diff: %w", err)
	}
	changedFiles := cs.ChangedFiles()

	nFiles, added, deleted := cs.Stats()
	fmt.Printf("%d file(s) changed, +%d -%d\n\n", nFiles, added, deleted)

	fired := 0
	if engine.HasLockedLineChanges(raw) {
		fmt.Printf("  LOCKS TOUCHED (built-in): requires distinct approvals from %s and %s\n",
			cfg.LocksReviewTeam, cfg.TeamLeadsTeam)
		fired++
	}
	for _, sensitive := range config.ActionReviewFiles {
		if containsFile(changedFiles, sensitive) {
			fmt.Printf("  Action files changed (built-in): requires an approval from %s\n",
				cfg.ActionReviewTeam)
			fired++
			break
		}
	}

	for i := range cfg.Rules {
		rule := &cfg.Rules[i]
		ok, err := engine.RuleFires(rule, raw, changedFiles)
		if err != nil {
			return err
		}
		if ok {
			fmt.Printf("  %s (%s on %s)\n", rule.Name, rule.Condition, rule.CheckType)
			fired++
		}
	}

	if fired == 0 {
		fmt.Println("No rules would fire for this diff.")
	}
	return nil
}

func containsFile(files []string, name string) bool {
	for _, file := range files {
		if file == name {
			return true
		}
	}
	return false
}

func getDiff(args []string) (string, error) {
	// Read from stdin if "-" is passed
	if len(args) == 1 && args[0] == "-" {
		data, err := os.ReadFile("/dev/stdin")
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}

	repoDir, err := gitRepoRoot()
	if err != nil {
		return "", fmt.Errorf("not in a git repository (or git not installed): %w", err)
	}

	if len(args) == 1 {
		return diff.GitDiffRange(repoDir, args[0])
	}

	return diff.GitDiffHead(repoDir)
}

func gitRepoRoot() (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
