package model

import (
	"reflect"
	"testing"
)

func TestApproverMapIndividualWinsOverTeam(t *testing.T) {
	// Individual reference first, team discovery second.
	m := make(ApproverMap)
	m.AddIndividual("alice")
	m.AddTeamMember("alice", "core")
	if !m["alice"].Individual() {
		t.Error("team discovery downgraded an individual entry")
	}

	// Team discovery first, individual reference second.
	m = make(ApproverMap)
	m.AddTeamMember("alice", "core")
	m.AddIndividual("alice")
	if !m["alice"].Individual() {
		t.Error("individual reference did not override team membership")
	}
}

func TestApproverMapAccumulatesTeams(t *testing.T) {
	m := make(ApproverMap)
	m.AddTeamMember("bob", "core")
	m.AddTeamMember("bob", "leads")

	if got := m["bob"].TeamList(); !reflect.DeepEqual(got, []string{"core", "leads"}) {
		t.Errorf("expected both teams, got %v", got)
	}
}

func TestApproverMapMerge(t *testing.T) {
	src := make(ApproverMap)
	src.AddTeamMember("carol", "leads")

	dst := make(ApproverMap)
	dst.AddTeamMember("carol", "core")
	dst.Merge("carol", src["carol"])
	if got := dst["carol"].TeamList(); !reflect.DeepEqual(got, []string{"core", "leads"}) {
		t.Errorf("expected unioned teams, got %v", got)
	}

	// An individual entry is never downgraded by a later team merge.
	dst = make(ApproverMap)
	dst.AddIndividual("carol")
	dst.Merge("carol", src["carol"])
	if !dst["carol"].Individual() {
		t.Error("merge downgraded an individual entry to team-scoped")
	}

	// A later individual merge always forces individual.
	dst = make(ApproverMap)
	dst.AddTeamMember("carol", "core")
	dst.Merge("carol", ApproverInfo{})
	if !dst["carol"].Individual() {
		t.Error("individual merge did not override team membership")
	}
}

func TestAnnotate(t *testing.T) {
	m := make(ApproverMap)
	m.AddIndividual("dave")
	if got := m["dave"].Annotate("dave"); got != "dave" {
		t.Errorf("expected bare login, got %q", got)
	}

	m.AddTeamMember("erin", "core")
	m.AddTeamMember("erin", "leads")
	if got := m["erin"].Annotate("erin"); got != "erin (team: core, leads)" {
		t.Errorf("unexpected annotation %q", got)
	}
}

func TestRuleMinApprovals(t *testing.T) {
	criteria := []ResolvedCriterion{
		{MinApprovals: 2},
		{MinApprovals: 5},
		{MinApprovals: 3},
	}

	tests := []struct {
		kind RuleKind
		want int
	}{
		{KindAnd, 5},
		{KindOr, 2},
		{KindAndDistinct, 10},
	}
	for _, tt := range tests {
		rule := &MatchedRule{Kind: tt.kind, Criteria: criteria}
		if got := rule.MinApprovals(); got != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.kind, tt.want, got)
		}
	}

	basic := &MatchedRule{Kind: KindBasic, Criteria: criteria[:1]}
	if got := basic.MinApprovals(); got != 2 {
		t.Errorf("basic: expected 2, got %d", got)
	}
}
