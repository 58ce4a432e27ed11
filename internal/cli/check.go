package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/sprite-ai/prgate/internal/engine"
	"github.com/sprite-ai/prgate/internal/gh"
	"github.com/sprite-ai/prgate/internal/logging"
	"github.com/sprite-ai/prgate/internal/model"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate the review policy for a pull request",
	Long: `Evaluate the repository's review policy against a pull request and
request any missing reviewers. Designed to run from CI.

Exit codes:
  0 — all matched rules are satisfied
  1 — the pull request still needs reviews (or the run failed)`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().String("owner", "", "repository owner (organization)")
	checkCmd.Flags().String("repo", "", "repository name")
	checkCmd.Flags().Int("pr", 0, "pull request number")
	checkCmd.Flags().String("token", "", "GitHub token (defaults to $GITHUB_TOKEN)")
	checkCmd.Flags().Bool("post-status", false, "post the verdict as a commit status on the PR head")
	checkCmd.Flags().String("details-url", "", "details link for the posted commit status")
	checkCmd.MarkFlagRequired("owner")
	checkCmd.MarkFlagRequired("repo")
	checkCmd.MarkFlagRequired("pr")
}

func runCheck(cmd *cobra.Command, args []string) error {
	owner, _ := cmd.Flags().GetString("owner")
	repo, _ := cmd.Flags().GetString("repo")
	number, _ := cmd.Flags().GetInt("pr")

	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	if token == "" {
		return fmt.Errorf("a GitHub token is required (--token or $GITHUB_TOKEN)")
	}

	ctx := cmd.Context()
	logger := logging.New(os.Stderr)
	client := gh.NewWithToken(token, owner, repo, number)

	state := model.StateFailure
	pr, headSHA, err := client.PullRequest(ctx)
	if err != nil {
		logger.Failure("%v", err)
	} else {
		result, runErr := engine.New(client, logger).Run(ctx, pr)
		if runErr != nil {
			logger.Failure("%v", runErr)
		} else {
			state = result.State
		}
	}

	postStatus, _ := cmd.Flags().GetBool("post-status")
	if postStatus && headSHA != "" {
		detailsURL, _ := cmd.Flags().GetString("details-url")
		if err := client.PostCommitStatus(ctx, headSHA, state, detailsURL); err != nil {
			logger.Failure("%v", err)
			state = model.StateFailure
		}
	}

	fmt.Printf("Final state: %s\n", state)
	if state != model.StateSuccess {
		os.Exit(1)
	}
	return nil
}
