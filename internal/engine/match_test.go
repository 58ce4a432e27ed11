package engine

import (
	"testing"

	"github.com/sprite-ai/prgate/internal/config"
)

func TestHasLockedLineChanges(t *testing.T) {
	tests := []struct {
		name string
		diff string
		want bool
	}{
		{"added locked line", "+🔒 do not touch\n context", true},
		{"removed locked line", "context\n-🔒 do not touch\n", true},
		{"change right after lock marker", " 🔒 frozen below\n+sneaky change\n", true},
		{"lock marker only in context", " 🔒 frozen\n context line\n", false},
		{"no lock marker", "+regular change\n-other change\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasLockedLineChanges(tt.diff); got != tt.want {
				t.Errorf("expected %v for %q", tt.want, tt.diff)
			}
		})
	}
}

func TestConditionMatching(t *testing.T) {
	tests := []struct {
		name  string
		cond  config.Condition
		files []string
		want  bool
	}{
		{
			name:  "include hit",
			cond:  config.Condition{Include: "^runtime/"},
			files: []string{"docs/readme.md", "runtime/module.go"},
			want:  true,
		},
		{
			name:  "include miss",
			cond:  config.Condition{Include: "^runtime/"},
			files: []string{"docs/readme.md"},
			want:  false,
		},
		{
			name:  "exclude removes the only hit",
			cond:  config.Condition{Include: "^runtime/", Exclude: "_test\\.go$"},
			files: []string{"runtime/module_test.go"},
			want:  false,
		},
		{
			name:  "exclude leaves another hit",
			cond:  config.Condition{Include: "^runtime/", Exclude: "_test\\.go$"},
			files: []string{"runtime/module_test.go", "runtime/module.go"},
			want:  true,
		},
		{
			name:  "bare exclude matches everything else",
			cond:  config.Condition{Exclude: "^docs/"},
			files: []string{"runtime/module.go"},
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := compileCondition("test", tt.cond)
			if err != nil {
				t.Fatal(err)
			}
			_, got := m.matchFiles(tt.files)
			if got != tt.want {
				t.Errorf("expected %v", tt.want)
			}
		})
	}
}

func TestConditionMultilineDiffMatch(t *testing.T) {
	diffText := "diff --git a/x b/x\n+++ b/x\n+added line\n context"

	m, err := compileCondition("test", config.Condition{Include: "^\\+added"})
	if err != nil {
		t.Fatal(err)
	}
	if !m.matchText(diffText) {
		t.Error("include pattern should match at any line start")
	}
}

func TestCompileConditionInvalidPattern(t *testing.T) {
	_, err := compileCondition("bad", config.Condition{Include: "("})
	if err == nil {
		t.Fatal("expected an error")
	}
	if _, ok := err.(*config.ValidationError); !ok {
		t.Errorf("expected a ValidationError, got %T", err)
	}
}

func TestRuleFires(t *testing.T) {
	rule := &config.Rule{
		Name:      "runtime",
		Condition: config.Condition{Include: "^runtime/"},
		CheckType: config.CheckChangedFiles,
	}
	fired, err := RuleFires(rule, "", []string{"runtime/lib.go"})
	if err != nil {
		t.Fatal(err)
	}
	if !fired {
		t.Error("expected rule to fire")
	}

	rule.CheckType = config.CheckDiff
	fired, err = RuleFires(rule, "nothing relevant", nil)
	if err != nil {
		t.Fatal(err)
	}
	if fired {
		t.Error("expected rule not to fire on diff")
	}
}
