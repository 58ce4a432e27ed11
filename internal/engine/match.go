package engine

import (
	"regexp"

	"github.com/sprite-ai/prgate/internal/config"
)

// lockExpression fires when a locked line (🔒) is added or removed, or when
// the line immediately following a lock marker is touched.
var lockExpression = regexp.MustCompile("🔒[^\n]*\n[+-]|(^|\n)[+-][^\n]*🔒")

// HasLockedLineChanges reports whether the diff touches locked lines.
func HasLockedLineChanges(diff string) bool {
	return lockExpression.MatchString(diff)
}

// matcher is a compiled rule condition. The include pattern scans across
// lines; the exclude pattern, when present, is a single plain search.
type matcher struct {
	include *regexp.Regexp
	exclude *regexp.Regexp
}

func compileCondition(ruleName string, cond config.Condition) (*matcher, error) {
	include, err := regexp.Compile("(?m)" + cond.Include)
	if err != nil {
		return nil, &config.ValidationError{
			Reason: "rule \"" + ruleName + "\" has an invalid include pattern: " + err.Error(),
		}
	}
	m := &matcher{include: include}
	if cond.Exclude != "" {
		exclude, err := regexp.Compile(cond.Exclude)
		if err != nil {
			return nil, &config.ValidationError{
				Reason: "rule \"" + ruleName + "\" has an invalid exclude pattern: " + err.Error(),
			}
		}
		m.exclude = exclude
	}
	return m, nil
}

// matchText reports whether the whole text matches include and not exclude.
func (m *matcher) matchText(text string) bool {
	if !m.include.MatchString(text) {
		return false
	}
	if m.exclude != nil && m.exclude.MatchString(text) {
		return false
	}
	return true
}

// RuleFires reports whether a configured rule's condition fires for the
// given diff text and changed-file set, without resolving any approvers.
func RuleFires(rule *config.Rule, diffText string, changedFiles []string) (bool, error) {
	cond, err := compileCondition(rule.Name, rule.Condition)
	if err != nil {
		return false, err
	}
	switch rule.CheckType {
	case config.CheckChangedFiles:
		_, ok := cond.matchFiles(changedFiles)
		return ok, nil
	case config.CheckDiff:
		return cond.matchText(diffText), nil
	default:
		return false, &config.ValidationError{
			Reason: "rule \"" + rule.Name + "\" has unhandled check_type \"" + string(rule.CheckType) + "\"",
		}
	}
}

// matchFiles returns the first filename matching include and not exclude.
func (m *matcher) matchFiles(files []string) (string, bool) {
	for _, file := range files {
		if m.matchText(file) {
			return file, true
		}
	}
	return "", false
}
