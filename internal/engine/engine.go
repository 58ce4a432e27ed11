// Package engine decides whether a pull request has received the reviews its
// policy requires, and which additional reviewers must be requested when it
// has not. One evaluation run is a pure function of its inputs: nothing is
// persisted or shared across runs.
package engine

import (
	"context"

	"github.com/sprite-ai/prgate/internal/config"
	"github.com/sprite-ai/prgate/internal/logging"
	"github.com/sprite-ai/prgate/internal/model"
)

// Client is the platform adapter the engine fetches its inputs through. The
// adapter owns transport concerns (retries, rate limiting, pagination); the
// engine treats every call as a single logical operation.
type Client interface {
	// FetchConfig returns the repository's review policy, or nil when the
	// repository has none.
	FetchConfig(ctx context.Context) (*config.Config, error)
	FetchDiff(ctx context.Context) (string, error)
	FetchChangedFiles(ctx context.Context) ([]string, error)
	FetchReviews(ctx context.Context) ([]model.Review, error)
	TeamMembers(ctx context.Context, team string) ([]string, error)
	RequestReviewers(ctx context.Context, users, teams []string) error
}

// PullRequest identifies the author of the pull request under evaluation.
type PullRequest struct {
	AuthorLogin string
	AuthorID    int64
}

// Result is the outcome of one evaluation run.
type Result struct {
	State          model.CommitState
	Problems       []string
	RequestedUsers []string
	RequestedTeams []string
	MatchedRules   int
}

// Engine evaluates review policies. It holds no state across runs.
type Engine struct {
	client Client
	log    *logging.Logger
}

// New returns an engine backed by the given platform adapter.
func New(client Client, log *logging.Logger) *Engine {
	return &Engine{client: client, log: log}
}

// Run performs one full evaluation of the pull request. Any error is a fatal
// condition for the run and the caller must report the verdict as failure:
// the system fails closed.
func (e *Engine) Run(ctx context.Context, pr PullRequest) (*Result, error) {
	cfg, err := e.client.FetchConfig(ctx)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		e.log.Log("No review policy found; nothing to check")
		return &Result{State: model.StateSuccess}, nil
	}

	diffText, err := e.client.FetchDiff(ctx)
	if err != nil {
		return nil, err
	}

	changedFiles, err := e.client.FetchChangedFiles(ctx)
	if err != nil {
		return nil, err
	}
	e.log.Log("Changed files: %v", changedFiles)

	cache := NewTeamCache(e.client.TeamMembers)
	resolver := NewResolver(cache, pr.AuthorLogin)

	matched, err := BuildMatchedRules(ctx, cfg, diffText, changedFiles, resolver, e.log)
	if err != nil {
		return nil, err
	}
	if len(matched) == 0 {
		e.log.Log("No rule matched this pull request")
		return &Result{State: model.StateSuccess}, nil
	}

	reviews, err := e.client.FetchReviews(ctx)
	if err != nil {
		return nil, err
	}
	latest := BuildLatestReviews(
		reviews,
		pr.AuthorLogin,
		pr.AuthorID,
		cfg.PreventReviewRequest.HasUser(pr.AuthorLogin),
	)

	outcomes := make([]model.RuleOutcome, 0, len(matched))
	for _, rule := range matched {
		outcome, err := EvaluateRule(rule, latest)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, outcome)
	}

	state, problems, users, teams := Aggregate(outcomes, cfg.PreventReviewRequest)

	// The single side-effecting write of the run, issued exactly once,
	// after every rule has been evaluated.
	if len(users) != 0 || len(teams) != 0 {
		e.log.Log("Requesting reviews from users %v and teams %v", users, teams)
		if err := e.client.RequestReviewers(ctx, users, teams); err != nil {
			return nil, err
		}
	}

	if len(problems) != 0 {
		e.log.Failure("The following problems were found:")
		for _, problem := range problems {
			e.log.Log("%s", problem)
		}
	}

	return &Result{
		State:          state,
		Problems:       problems,
		RequestedUsers: users,
		RequestedTeams: teams,
		MatchedRules:   len(matched),
	}, nil
}
