// Package model defines the core data types shared across prgate.
package model

import (
	"sort"
	"strings"
)

// CommitState is the final verdict reported for a pull request.
type CommitState string

const (
	StateSuccess CommitState = "success"
	StateFailure CommitState = "failure"
)

// RuleKind identifies how a rule combines its criteria.
type RuleKind int

const (
	KindBasic RuleKind = iota
	KindAnd
	KindOr
	KindAndDistinct
)

func (k RuleKind) String() string {
	switch k {
	case KindBasic:
		return "basic"
	case KindAnd:
		return "and"
	case KindOr:
		return "or"
	case KindAndDistinct:
		return "and_distinct"
	default:
		return "unknown"
	}
}

// ApproverInfo records how a user entered an approver set. A nil Teams set
// means the user was referenced individually and must be requested on their
// own, never rolled into a team request. A non-nil set accumulates every team
// through which the user was discovered.
type ApproverInfo struct {
	Teams map[string]struct{}
}

// Individual reports whether this user must be requested individually.
func (a ApproverInfo) Individual() bool {
	return a.Teams == nil
}

// TeamList returns the teams in sorted order.
func (a ApproverInfo) TeamList() []string {
	if len(a.Teams) == 0 {
		return nil
	}
	teams := make([]string, 0, len(a.Teams))
	for team := range a.Teams {
		teams = append(teams, team)
	}
	sort.Strings(teams)
	return teams
}

// Annotate renders "login" or "login (team: a, b)" for failure messages.
func (a ApproverInfo) Annotate(login string) string {
	teams := a.TeamList()
	if len(teams) == 0 {
		return login
	}
	return login + " (team: " + strings.Join(teams, ", ") + ")"
}

// ApproverMap maps usernames to how they were discovered.
type ApproverMap map[string]ApproverInfo

// AddIndividual registers an explicitly listed user. An individual reference
// always wins over team membership, regardless of discovery order.
func (m ApproverMap) AddIndividual(login string) {
	m[login] = ApproverInfo{}
}

// AddTeamMember registers a user discovered via a team. It never downgrades
// an individually referenced user to team-scoped.
func (m ApproverMap) AddTeamMember(login, team string) {
	info, ok := m[login]
	if ok && info.Individual() {
		return
	}
	if info.Teams == nil {
		info.Teams = make(map[string]struct{})
	}
	info.Teams[team] = struct{}{}
	m[login] = info
}

// Merge folds another entry into the map with the same precedence as
// discovery: once individual, always individual; team sets are unioned.
func (m ApproverMap) Merge(login string, other ApproverInfo) {
	if other.Individual() {
		m[login] = ApproverInfo{}
		return
	}
	info, ok := m[login]
	if !ok {
		teams := make(map[string]struct{}, len(other.Teams))
		for team := range other.Teams {
			teams[team] = struct{}{}
		}
		m[login] = ApproverInfo{Teams: teams}
		return
	}
	if info.Individual() {
		return
	}
	for team := range other.Teams {
		info.Teams[team] = struct{}{}
	}
	m[login] = info
}

// Logins returns the usernames in sorted order.
func (m ApproverMap) Logins() []string {
	logins := make([]string, 0, len(m))
	for login := range m {
		logins = append(logins, login)
	}
	sort.Strings(logins)
	return logins
}

// ResolvedCriterion is one (min_approvals, eligible users) clause of a rule
// with its user/team references expanded to concrete approvers.
type ResolvedCriterion struct {
	Name         string
	MinApprovals int
	Users        ApproverMap
}

// MatchedRule is a rule whose condition fired for the current pull request,
// with every criterion's approver set already resolved.
type MatchedRule struct {
	Name     string
	Kind     RuleKind
	Criteria []ResolvedCriterion
}

// MinApprovals is the rule-level approval target: the single criterion's
// value for basic rules, the maximum for and, the minimum for or, and the sum
// for and_distinct. It is only consulted when no criterion names any user.
func (r *MatchedRule) MinApprovals() int {
	switch r.Kind {
	case KindBasic:
		if len(r.Criteria) == 0 {
			return 0
		}
		return r.Criteria[0].MinApprovals
	case KindAnd:
		max := 0
		for _, c := range r.Criteria {
			if c.MinApprovals > max {
				max = c.MinApprovals
			}
		}
		return max
	case KindOr:
		min := 0
		for i, c := range r.Criteria {
			if i == 0 || c.MinApprovals < min {
				min = c.MinApprovals
			}
		}
		return min
	case KindAndDistinct:
		sum := 0
		for _, c := range r.Criteria {
			sum += c.MinApprovals
		}
		return sum
	default:
		return 0
	}
}

// TotalUsers counts users across all criteria, without deduplication.
func (r *MatchedRule) TotalUsers() int {
	n := 0
	for _, c := range r.Criteria {
		n += len(c.Users)
	}
	return n
}

// Review state values as reported by the hosting platform.
const (
	ReviewApproved  = "APPROVED"
	ReviewCommented = "COMMENTED"
)

// Review is one raw review as fetched from the platform.
type Review struct {
	ID        int64
	UserID    int64
	UserLogin string
	State     string
}

// LatestReview is the reduced verdict for one reviewer: only the review with
// the highest id survives the reduction.
type LatestReview struct {
	ID         int64
	Login      string
	IsApproval bool
}

// RuleOutcome is the evaluation result for one matched rule. A zero Problem
// means success; on failure UsersToAsk holds the reviewers to request.
type RuleOutcome struct {
	Rule       *MatchedRule
	Problem    string
	UsersToAsk ApproverMap
}

// Failed reports whether the rule was left unsatisfied.
func (o RuleOutcome) Failed() bool {
	return o.Problem != ""
}
