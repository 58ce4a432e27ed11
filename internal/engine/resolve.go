package engine

import (
	"context"
	"sync"

	"github.com/sprite-ai/prgate/internal/model"
)

// TeamFetcher looks up the member logins of a team.
type TeamFetcher func(ctx context.Context, team string) ([]string, error)

// TeamCache memoizes team-membership lookups for a single evaluation run.
// Each team is fetched at most once, even under concurrent access.
type TeamCache struct {
	fetch TeamFetcher

	mu      sync.Mutex
	entries map[string]*teamEntry
}

type teamEntry struct {
	once    sync.Once
	members []string
	err     error
}

// NewTeamCache returns an empty per-run cache backed by fetch.
func NewTeamCache(fetch TeamFetcher) *TeamCache {
	return &TeamCache{fetch: fetch, entries: make(map[string]*teamEntry)}
}

// Members returns the cached membership of team, fetching it on first use.
func (c *TeamCache) Members(ctx context.Context, team string) ([]string, error) {
	c.mu.Lock()
	entry, ok := c.entries[team]
	if !ok {
		entry = &teamEntry{}
		c.entries[team] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		entry.members, entry.err = c.fetch(ctx, team)
	})
	return entry.members, entry.err
}

// Resolver expands user and team references into concrete approver maps.
// The pull request author is never added: their authorship already counts as
// an implicit approval and they can not be requested as their own reviewer.
type Resolver struct {
	cache  *TeamCache
	author string
}

// NewResolver returns a resolver scoped to one evaluation run.
func NewResolver(cache *TeamCache, author string) *Resolver {
	return &Resolver{cache: cache, author: author}
}

// Resolve expands the given references into a deduplicated approver map.
// Explicitly listed users are registered individually; team members are
// merged in afterwards, never downgrading an individual entry.
func (r *Resolver) Resolve(ctx context.Context, users, teams []string) (model.ApproverMap, error) {
	approvers := make(model.ApproverMap)

	for _, login := range users {
		if login == r.author {
			continue
		}
		approvers.AddIndividual(login)
	}

	for _, team := range teams {
		members, err := r.cache.Members(ctx, team)
		if err != nil {
			return nil, err
		}
		for _, login := range members {
			if login == r.author {
				continue
			}
			approvers.AddTeamMember(login, team)
		}
	}

	return approvers, nil
}
