package engine

import (
	"context"
	"fmt"

	"github.com/sprite-ai/prgate/internal/config"
	"github.com/sprite-ai/prgate/internal/logging"
	"github.com/sprite-ai/prgate/internal/model"
)

// BuildMatchedRules instantiates the built-in triggers and every configured
// rule whose condition fires, resolving each criterion's approver set along
// the way. Rules whose conditions do not fire are skipped, not failed. Rule
// order is preserved for deterministic logging only; every rule evaluates
// independently.
func BuildMatchedRules(
	ctx context.Context,
	cfg *config.Config,
	diffText string,
	changedFiles []string,
	resolver *Resolver,
	log *logging.Logger,
) ([]*model.MatchedRule, error) {
	var matched []*model.MatchedRule

	if HasLockedLineChanges(diffText) {
		log.Log("Diff has changes to 🔒 lines or lines following 🔒")
		rule := &model.MatchedRule{Name: "LOCKS TOUCHED", Kind: model.KindAndDistinct}
		for _, team := range []string{cfg.LocksReviewTeam, cfg.TeamLeadsTeam} {
			users, err := resolver.Resolve(ctx, nil, []string{team})
			if err != nil {
				return nil, err
			}
			rule.Criteria = append(rule.Criteria, model.ResolvedCriterion{
				Name:         fmt.Sprintf("LOCKS TOUCHED (team: %s)", team),
				MinApprovals: 1,
				Users:        users,
			})
		}
		matched = append(matched, rule)
	}

	for _, sensitive := range config.ActionReviewFiles {
		if !containsFile(changedFiles, sensitive) {
			continue
		}
		log.Log("Changed file %s requires a review from the %s team", sensitive, cfg.ActionReviewTeam)
		users, err := resolver.Resolve(ctx, nil, []string{cfg.ActionReviewTeam})
		if err != nil {
			return nil, err
		}
		matched = append(matched, &model.MatchedRule{
			Name: "Action files changed",
			Kind: model.KindBasic,
			Criteria: []model.ResolvedCriterion{{
				Name:         "Action files changed",
				MinApprovals: 1,
				Users:        users,
			}},
		})
		break
	}

	for i := range cfg.Rules {
		rule := &cfg.Rules[i]

		kind, err := rule.Kind()
		if err != nil {
			return nil, err
		}

		cond, err := compileCondition(rule.Name, rule.Condition)
		if err != nil {
			return nil, err
		}

		fired := false
		switch rule.CheckType {
		case config.CheckChangedFiles:
			if file, ok := cond.matchFiles(changedFiles); ok {
				log.Log("Matched condition %q of rule %q for the file %s", rule.Condition, rule.Name, file)
				fired = true
			}
		case config.CheckDiff:
			if cond.matchText(diffText) {
				log.Log("Matched condition %q of rule %q on the diff", rule.Condition, rule.Name)
				fired = true
			}
		default:
			return nil, fmt.Errorf("rule %q has unhandled check_type %q", rule.Name, rule.CheckType)
		}
		if !fired {
			continue
		}

		criteria, err := rule.Criteria()
		if err != nil {
			return nil, err
		}

		mr := &model.MatchedRule{Name: rule.Name, Kind: kind}
		for _, criterion := range criteria {
			users, err := resolver.Resolve(ctx, criterion.Users, criterion.Teams)
			if err != nil {
				return nil, err
			}
			mr.Criteria = append(mr.Criteria, model.ResolvedCriterion{
				Name:         criterion.Name,
				MinApprovals: criterion.MinApprovals,
				Users:        users,
			})
		}
		matched = append(matched, mr)
	}

	return matched, nil
}

func containsFile(files []string, name string) bool {
	for _, file := range files {
		if file == name {
			return true
		}
	}
	return false
}
