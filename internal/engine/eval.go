package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sprite-ai/prgate/internal/config"
	"github.com/sprite-ai/prgate/internal/model"
)

// EvaluateRule decides one rule's outcome against the reduced approval
// ledger. An error here means an unrecognized rule kind reached evaluation,
// which is unreachable under valid input and aborts the whole run.
func EvaluateRule(rule *model.MatchedRule, latest map[int64]model.LatestReview) (model.RuleOutcome, error) {
	ledger := buildLedger(latest)

	// No criterion names any user: fall back to an unscoped "any N
	// approvals from anyone" requirement.
	if rule.TotalUsers() == 0 {
		required := rule.MinApprovals()
		if ledger.total >= required {
			return model.RuleOutcome{Rule: rule}, nil
		}
		return model.RuleOutcome{
			Rule: rule,
			Problem: fmt.Sprintf(
				"Rule %q requires at least %d approvals, but only %d were given",
				rule.Name, required, ledger.total,
			),
			UsersToAsk: make(model.ApproverMap),
		}, nil
	}

	switch rule.Kind {
	case model.KindBasic:
		return evalBasic(rule, ledger), nil
	case model.KindAnd:
		return evalAnd(rule, ledger), nil
	case model.KindOr:
		return evalOr(rule, ledger), nil
	case model.KindAndDistinct:
		return evalAndDistinct(rule, ledger), nil
	default:
		return model.RuleOutcome{}, fmt.Errorf("rule %q has unhandled kind %v", rule.Name, rule.Kind)
	}
}

// criterionShortfall counts the criterion's approved members and collects the
// eligible members who have not approved at all.
func criterionShortfall(criterion model.ResolvedCriterion, ledger *approvalLedger) (approved int, missing model.ApproverMap) {
	missing = make(model.ApproverMap)
	for login, info := range criterion.Users {
		if ledger.Approved(login) {
			approved++
		} else {
			missing.Merge(login, info)
		}
	}
	return approved, missing
}

// criterionProblem renders the failure sentence for one unmet criterion.
func criterionProblem(criterion model.ResolvedCriterion, approved int, missing model.ApproverMap) string {
	annotated := make([]string, 0, len(missing))
	for _, login := range missing.Logins() {
		annotated = append(annotated, missing[login].Annotate(login))
	}
	return fmt.Sprintf(
		"Rule %q needs at least %d approvals, but %d were matched. The following users have not approved yet: %s.",
		criterion.Name, criterion.MinApprovals, approved, strings.Join(annotated, ", "),
	)
}

func evalBasic(rule *model.MatchedRule, ledger *approvalLedger) model.RuleOutcome {
	criterion := rule.Criteria[0]
	approved, missing := criterionShortfall(criterion, ledger)
	if approved >= criterion.MinApprovals {
		return model.RuleOutcome{Rule: rule}
	}
	return model.RuleOutcome{
		Rule:       rule,
		Problem:    criterionProblem(criterion, approved, missing),
		UsersToAsk: missing,
	}
}

func evalAnd(rule *model.MatchedRule, ledger *approvalLedger) model.RuleOutcome {
	var problems []string
	toAsk := make(model.ApproverMap)

	// The same approver may count toward several criteria; each criterion
	// only has to reach its own threshold independently.
	for _, criterion := range rule.Criteria {
		approved, missing := criterionShortfall(criterion, ledger)
		if approved >= criterion.MinApprovals {
			continue
		}
		problems = append(problems, criterionProblem(criterion, approved, missing))
		for login, info := range missing {
			toAsk.Merge(login, info)
		}
	}

	if len(problems) == 0 {
		return model.RuleOutcome{Rule: rule}
	}
	return model.RuleOutcome{
		Rule:       rule,
		Problem:    strings.Join(problems, "\n"),
		UsersToAsk: toAsk,
	}
}

func evalOr(rule *model.MatchedRule, ledger *approvalLedger) model.RuleOutcome {
	var problems []string
	toAsk := make(model.ApproverMap)

	for _, criterion := range rule.Criteria {
		approved, missing := criterionShortfall(criterion, ledger)
		if approved >= criterion.MinApprovals {
			return model.RuleOutcome{Rule: rule}
		}
		problems = append(problems, criterionProblem(criterion, approved, missing))
		for login, info := range missing {
			toAsk.Merge(login, info)
		}
	}

	return model.RuleOutcome{
		Rule:       rule,
		Problem:    strings.Join(problems, "\n"),
		UsersToAsk: toAsk,
	}
}

func evalAndDistinct(rule *model.MatchedRule, ledger *approvalLedger) model.RuleOutcome {
	target := 0
	caps := make([]int, len(rule.Criteria))
	for i, criterion := range rule.Criteria {
		caps[i] = criterion.MinApprovals
		target += criterion.MinApprovals
	}

	// Gather the approvers eligible for at least one criterion, in sorted
	// order so the search is deterministic.
	eligibleSet := make(map[string][]int)
	for i, criterion := range rule.Criteria {
		for login := range criterion.Users {
			if ledger.Approved(login) {
				eligibleSet[login] = append(eligibleSet[login], i)
			}
		}
	}
	approvers := make([]string, 0, len(eligibleSet))
	for login := range eligibleSet {
		approvers = append(approvers, login)
	}
	sort.Strings(approvers)

	eligible := make([][]int, len(approvers))
	for i, login := range approvers {
		criteria := eligibleSet[login]
		sort.Ints(criteria)
		eligible[i] = criteria
	}

	matched := newDistinctMatcher(caps, eligible).Max()
	if matched >= target {
		return model.RuleOutcome{Rule: rule}
	}

	// The missing approvers are reported per criterion as the eligible
	// members who have not approved at all, independent of which maximum
	// matching was found, so the message is deterministic.
	problems := []string{fmt.Sprintf(
		"Rule %q needs at least %d distinct approvals, but only %d could be matched.",
		rule.Name, target, matched,
	)}
	toAsk := make(model.ApproverMap)
	for _, criterion := range rule.Criteria {
		approved, missing := criterionShortfall(criterion, ledger)
		if len(missing) == 0 {
			continue
		}
		problems = append(problems, criterionProblem(criterion, approved, missing))
		for login, info := range missing {
			toAsk.Merge(login, info)
		}
	}

	return model.RuleOutcome{
		Rule:       rule,
		Problem:    strings.Join(problems, "\n"),
		UsersToAsk: toAsk,
	}
}

// Aggregate walks all rule outcomes and produces the final verdict together
// with the deduplicated reviewer request, honoring the exclusion list and the
// individual-overrides-team precedence.
func Aggregate(outcomes []model.RuleOutcome, prevent config.PreventReviewRequest) (state model.CommitState, problems, users, teams []string) {
	merged := make(model.ApproverMap)
	state = model.StateSuccess

	for _, outcome := range outcomes {
		if !outcome.Failed() {
			continue
		}
		state = model.StateFailure
		problems = append(problems, outcome.Problem)
		for login, info := range outcome.UsersToAsk {
			merged.Merge(login, info)
		}
	}

	teamSet := make(map[string]struct{})
	for _, login := range merged.Logins() {
		info := merged[login]
		if info.Individual() {
			if !prevent.HasUser(login) {
				users = append(users, login)
			}
			continue
		}
		for team := range info.Teams {
			if !prevent.HasTeam(team) {
				teamSet[team] = struct{}{}
			}
		}
	}
	for team := range teamSet {
		teams = append(teams, team)
	}
	sort.Strings(teams)

	return state, problems, users, teams
}
