package engine

// distinctMatcher computes a maximum-cardinality assignment of approvers to
// criteria, where every approver counts toward at most one criterion and
// criterion i accepts at most caps[i] approvers. It is a bipartite b-matching
// solved with augmenting paths: a greedy first-fit scan is not enough because
// an approver eligible for several criteria can starve another criterion, and
// the rule must succeed whenever any valid assignment exists.
type distinctMatcher struct {
	caps     []int
	eligible [][]int // per approver, indexes of criteria they may count toward
	assigned [][]int // per criterion, approver indexes currently assigned
}

// newDistinctMatcher builds a matcher for len(caps) criteria. eligible[u]
// lists the criteria approver u may be credited to.
func newDistinctMatcher(caps []int, eligible [][]int) *distinctMatcher {
	return &distinctMatcher{
		caps:     caps,
		eligible: eligible,
		assigned: make([][]int, len(caps)),
	}
}

// Max returns the size of a maximum assignment.
func (m *distinctMatcher) Max() int {
	matched := 0
	for u := range m.eligible {
		visited := make([]bool, len(m.caps))
		if m.place(u, visited) {
			matched++
		}
	}
	return matched
}

// place tries to credit approver u to some criterion, re-routing previously
// placed approvers along an augmenting path when every eligible criterion is
// at capacity.
func (m *distinctMatcher) place(u int, visited []bool) bool {
	for _, c := range m.eligible[u] {
		if visited[c] {
			continue
		}
		visited[c] = true

		if len(m.assigned[c]) < m.caps[c] {
			m.assigned[c] = append(m.assigned[c], u)
			return true
		}

		for i, w := range m.assigned[c] {
			if m.place(w, visited) {
				m.assigned[c][i] = u
				return true
			}
		}
	}
	return false
}
