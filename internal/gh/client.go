// Package gh adapts the GitHub API to the engine's collaborator interface.
// Pagination and transport behavior live here; the engine never sees them.
package gh

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v71/github"

	"github.com/sprite-ai/prgate/internal/config"
	"github.com/sprite-ai/prgate/internal/engine"
	"github.com/sprite-ai/prgate/internal/model"
)

const perPage = 100

// Client implements engine.Client for one pull request.
type Client struct {
	gh     *github.Client
	owner  string
	repo   string
	number int
}

// New returns an adapter scoped to one pull request. The owner login doubles
// as the organization for team lookups.
func New(client *github.Client, owner, repo string, number int) *Client {
	return &Client{gh: client, owner: owner, repo: repo, number: number}
}

// NewWithToken builds an authenticated adapter.
func NewWithToken(token, owner, repo string, number int) *Client {
	return New(github.NewClient(nil).WithAuthToken(token), owner, repo, number)
}

// PullRequest fetches the author identity and head SHA of the pull request.
func (c *Client) PullRequest(ctx context.Context) (engine.PullRequest, string, error) {
	pr, _, err := c.gh.PullRequests.Get(ctx, c.owner, c.repo, c.number)
	if err != nil {
		return engine.PullRequest{}, "", fmt.Errorf("fetching pull request: %w", err)
	}
	info := engine.PullRequest{
		AuthorLogin: pr.GetUser().GetLogin(),
		AuthorID:    pr.GetUser().GetID(),
	}
	return info, pr.GetHead().GetSHA(), nil
}

// FetchConfig reads and parses the repository's review policy. A repository
// without a policy file yields (nil, nil).
func (c *Client) FetchConfig(ctx context.Context) (*config.Config, error) {
	file, _, resp, err := c.gh.Repositories.GetContents(ctx, c.owner, c.repo, config.FilePath, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching %s: %w", config.FilePath, err)
	}
	if file == nil {
		return nil, fmt.Errorf("%s is not a file", config.FilePath)
	}
	contents, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", config.FilePath, err)
	}
	return config.Parse([]byte(contents))
}

// FetchDiff returns the raw unified diff of the pull request.
func (c *Client) FetchDiff(ctx context.Context) (string, error) {
	diff, _, err := c.gh.PullRequests.GetRaw(ctx, c.owner, c.repo, c.number, github.RawOptions{Type: github.Diff})
	if err != nil {
		return "", fmt.Errorf("fetching diff: %w", err)
	}
	return diff, nil
}

// FetchChangedFiles returns every changed filename in the pull request.
func (c *Client) FetchChangedFiles(ctx context.Context) ([]string, error) {
	var files []string
	opts := &github.ListOptions{PerPage: perPage}
	for {
		page, resp, err := c.gh.PullRequests.ListFiles(ctx, c.owner, c.repo, c.number, opts)
		if err != nil {
			return nil, fmt.Errorf("fetching changed files: %w", err)
		}
		for _, f := range page {
			files = append(files, f.GetFilename())
		}
		if resp.NextPage == 0 {
			return files, nil
		}
		opts.Page = resp.NextPage
	}
}

// FetchReviews returns every review on the pull request.
func (c *Client) FetchReviews(ctx context.Context) ([]model.Review, error) {
	var reviews []model.Review
	opts := &github.ListOptions{PerPage: perPage}
	for {
		page, resp, err := c.gh.PullRequests.ListReviews(ctx, c.owner, c.repo, c.number, opts)
		if err != nil {
			return nil, fmt.Errorf("fetching reviews: %w", err)
		}
		for _, review := range page {
			reviews = append(reviews, model.Review{
				ID:        review.GetID(),
				UserID:    review.GetUser().GetID(),
				UserLogin: review.GetUser().GetLogin(),
				State:     review.GetState(),
			})
		}
		if resp.NextPage == 0 {
			return reviews, nil
		}
		opts.Page = resp.NextPage
	}
}

// TeamMembers returns the member logins of an organization team.
func (c *Client) TeamMembers(ctx context.Context, team string) ([]string, error) {
	var members []string
	opts := &github.TeamListTeamMembersOptions{ListOptions: github.ListOptions{PerPage: perPage}}
	for {
		page, resp, err := c.gh.Teams.ListTeamMembersBySlug(ctx, c.owner, team, opts)
		if err != nil {
			return nil, fmt.Errorf("fetching members of team %s: %w", team, err)
		}
		for _, member := range page {
			members = append(members, member.GetLogin())
		}
		if resp.NextPage == 0 {
			return members, nil
		}
		opts.Page = resp.NextPage
	}
}

// RequestReviewers asks the given users and teams for a review.
func (c *Client) RequestReviewers(ctx context.Context, users, teams []string) error {
	_, _, err := c.gh.PullRequests.RequestReviewers(ctx, c.owner, c.repo, c.number, github.ReviewersRequest{
		Reviewers:     users,
		TeamReviewers: teams,
	})
	if err != nil {
		return fmt.Errorf("requesting reviewers: %w", err)
	}
	return nil
}

// PostCommitStatus reports the verdict as a commit status on the head SHA.
func (c *Client) PostCommitStatus(ctx context.Context, sha string, state model.CommitState, targetURL string) error {
	status := &github.RepoStatus{
		State:       github.Ptr(string(state)),
		Context:     github.Ptr("prgate"),
		Description: github.Ptr("Review policy check"),
	}
	if targetURL != "" {
		status.TargetURL = github.Ptr(targetURL)
	}
	_, _, err := c.gh.Repositories.CreateStatus(ctx, c.owner, c.repo, sha, status)
	if err != nil {
		return fmt.Errorf("posting commit status: %w", err)
	}
	return nil
}
