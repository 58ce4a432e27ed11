// Package config parses and validates the review-policy configuration file.
//
// The file names the three built-in teams, the rule list, and an optional
// exclusion list for review requests. Every rule carries exactly one kind
// payload (basic fields, all, any, or all_distinct); mixing fields from
// different kinds is rejected here, before anything reaches the evaluator.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sprite-ai/prgate/internal/model"
)

// Well-known repository paths whose changes always require a policy review.
const (
	FilePath         = ".github/review-policy.yml"
	WorkflowFilePath = ".github/workflows/review-policy.yml"
)

// ActionReviewFiles are the self-referential paths guarded by the built-in
// sensitive-file rule.
var ActionReviewFiles = []string{FilePath, WorkflowFilePath}

// ValidationError marks a malformed configuration. The whole run is aborted
// on validation failure so that a bad policy never grants fewer protections
// than intended.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + e.Reason
}

func invalidf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// CheckType selects what a rule's condition is matched against.
type CheckType string

const (
	CheckDiff         CheckType = "diff"
	CheckChangedFiles CheckType = "changed_files"
)

// Condition is a rule trigger: either a bare include pattern or an object
// with include/exclude patterns, at least one of which must be present.
type Condition struct {
	Include string
	Exclude string
}

// UnmarshalYAML accepts both the scalar and the mapping form.
func (c *Condition) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var include string
		if err := value.Decode(&include); err != nil {
			return err
		}
		c.Include = include
		return nil
	case yaml.MappingNode:
		var obj struct {
			Include string `yaml:"include"`
			Exclude string `yaml:"exclude"`
		}
		if err := value.Decode(&obj); err != nil {
			return err
		}
		c.Include = obj.Include
		c.Exclude = obj.Exclude
		return nil
	default:
		return fmt.Errorf("condition must be a string or an include/exclude object")
	}
}

// Empty reports whether neither pattern is present.
func (c Condition) Empty() bool {
	return c.Include == "" && c.Exclude == ""
}

func (c Condition) String() string {
	if c.Exclude == "" {
		return c.Include
	}
	return fmt.Sprintf("include: %s, exclude: %s", c.Include, c.Exclude)
}

// Criterion is one (min_approvals, eligible users/teams) clause.
type Criterion struct {
	Name         string   `yaml:"name"`
	MinApprovals int      `yaml:"min_approvals"`
	Users        []string `yaml:"users"`
	Teams        []string `yaml:"teams"`
}

// Rule is one configured policy rule. The kind-specific payload is exactly
// one of: the inline basic fields, All, Any, or AllDistinct.
type Rule struct {
	Name      string    `yaml:"name"`
	Condition Condition `yaml:"condition"`
	CheckType CheckType `yaml:"check_type"`

	// Basic kind payload.
	MinApprovals *int     `yaml:"min_approvals"`
	Users        []string `yaml:"users"`
	Teams        []string `yaml:"teams"`

	// Composite kind payloads.
	All         []Criterion `yaml:"all"`
	Any         []Criterion `yaml:"any"`
	AllDistinct []Criterion `yaml:"all_distinct"`
}

// kindFields maps each rule kind to the payload fields that identify it.
var kindFields = []struct {
	kind   model.RuleKind
	fields []string
}{
	{model.KindBasic, []string{"min_approvals", "users", "teams"}},
	{model.KindAnd, []string{"all"}},
	{model.KindOr, []string{"any"}},
	{model.KindAndDistinct, []string{"all_distinct"}},
}

func (r *Rule) presentFields() map[string]bool {
	present := make(map[string]bool)
	if r.MinApprovals != nil {
		present["min_approvals"] = true
	}
	if r.Users != nil {
		present["users"] = true
	}
	if r.Teams != nil {
		present["teams"] = true
	}
	if r.All != nil {
		present["all"] = true
	}
	if r.Any != nil {
		present["any"] = true
	}
	if r.AllDistinct != nil {
		present["all_distinct"] = true
	}
	return present
}

// Kind determines which rule kind this payload belongs to. Fields unique to
// one kind must never co-occur with fields unique to another.
func (r *Rule) Kind() (model.RuleKind, error) {
	present := r.presentFields()

	var matched []model.RuleKind
	var matchedField []string
	for _, kf := range kindFields {
		for _, field := range kf.fields {
			if present[field] {
				matched = append(matched, kf.kind)
				matchedField = append(matchedField, field)
				break
			}
		}
	}

	switch len(matched) {
	case 0:
		return 0, invalidf("rule %q could not be matched to any known kind", r.Name)
	case 1:
		return matched[0], nil
	default:
		return 0, invalidf(
			"rule %q was expected to be of kind %q because it has the field %q, but it also has the field %q, which belongs to kind %q; mixing fields from different kinds of rules is not allowed",
			r.Name, matched[0], matchedField[0], matchedField[1], matched[1],
		)
	}
}

// PreventReviewRequest lists users and teams that must never be asked for a
// review, even when a failed rule would otherwise request them.
type PreventReviewRequest struct {
	Users []string `yaml:"users"`
	Teams []string `yaml:"teams"`
}

// HasUser reports whether login is excluded from review requests.
func (p PreventReviewRequest) HasUser(login string) bool {
	for _, user := range p.Users {
		if user == login {
			return true
		}
	}
	return false
}

// HasTeam reports whether team is excluded from review requests.
func (p PreventReviewRequest) HasTeam(team string) bool {
	for _, t := range p.Teams {
		if t == team {
			return true
		}
	}
	return false
}

// Config is the parsed review-policy file.
type Config struct {
	LocksReviewTeam      string               `yaml:"locks-review-team"`
	TeamLeadsTeam        string               `yaml:"team-leads-team"`
	ActionReviewTeam     string               `yaml:"action-review-team"`
	Rules                []Rule               `yaml:"rules"`
	PreventReviewRequest PreventReviewRequest `yaml:"prevent-review-request"`
}

// Parse decodes and validates a review-policy payload.
func Parse(data []byte) (*Config, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, invalidf("configuration payload is empty")
	}
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, invalidf("decode: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads and parses a review-policy file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the whole configuration. Any violation aborts the run.
func (c *Config) Validate() error {
	for _, team := range []struct{ field, value string }{
		{"locks-review-team", c.LocksReviewTeam},
		{"team-leads-team", c.TeamLeadsTeam},
		{"action-review-team", c.ActionReviewTeam},
	} {
		if strings.TrimSpace(team.value) == "" {
			return invalidf("%s must be a non-empty string", team.field)
		}
	}

	for i := range c.Rules {
		if err := c.Rules[i].validate(); err != nil {
			return err
		}
	}
	return nil
}

func (r *Rule) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return invalidf("every rule requires a name")
	}
	if r.Condition.Empty() {
		return invalidf("rule %q requires a condition", r.Name)
	}
	switch r.CheckType {
	case CheckDiff, CheckChangedFiles:
	default:
		return invalidf("rule %q has invalid check_type %q", r.Name, r.CheckType)
	}

	kind, err := r.Kind()
	if err != nil {
		return err
	}

	switch kind {
	case model.KindBasic:
		if r.MinApprovals == nil || *r.MinApprovals < 1 {
			return invalidf("rule %q requires min_approvals of at least 1", r.Name)
		}
	case model.KindAnd, model.KindOr, model.KindAndDistinct:
		for _, criterion := range r.criteria(kind) {
			if criterion.MinApprovals < 1 {
				return invalidf("rule %q requires min_approvals of at least 1 in every criterion", r.Name)
			}
		}
	}
	return nil
}

func (r *Rule) criteria(kind model.RuleKind) []Criterion {
	switch kind {
	case model.KindAnd:
		return r.All
	case model.KindOr:
		return r.Any
	case model.KindAndDistinct:
		return r.AllDistinct
	default:
		return nil
	}
}

// Criteria returns the rule's criteria in declaration order. For basic rules
// the inline fields are exposed as a single criterion named after the rule.
func (r *Rule) Criteria() ([]Criterion, error) {
	kind, err := r.Kind()
	if err != nil {
		return nil, err
	}
	if kind == model.KindBasic {
		min := 0
		if r.MinApprovals != nil {
			min = *r.MinApprovals
		}
		return []Criterion{{
			Name:         r.Name,
			MinApprovals: min,
			Users:        r.Users,
			Teams:        r.Teams,
		}}, nil
	}

	criteria := r.criteria(kind)
	named := make([]Criterion, len(criteria))
	for i, criterion := range criteria {
		named[i] = criterion
		if named[i].Name == "" {
			named[i].Name = fmt.Sprintf("%s[%d]", r.Name, i)
		}
	}
	return named, nil
}
