package review

import (
	"math/rand/v2"
	"testing"
)

func violations(critical, nonCritical int) []Violation {
	var vs []Violation
	for i := 0; i < critical; i++ {
		vs = append(vs, Violation{Path: "A.java", RuleID: "crit", Critical: true, Line: i + 1})
	}
	for i := 0; i < nonCritical; i++ {
		vs = append(vs, Violation{Path: "B.java", RuleID: "warn", Line: i + 1})
	}
	return vs
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name        string
		critical    int
		nonCritical int
		want        Verdict
	}{
		{"empty", 0, 0, Verdict{TotalViolations: 0, HasCritical: false, Outcome: OutcomeClean}},
		{"warnings only", 0, 3, Verdict{TotalViolations: 3, HasCritical: false, Outcome: OutcomeViolations}},
		{"one critical", 1, 0, Verdict{TotalViolations: 1, HasCritical: true, Outcome: OutcomeCritical}},
		{"mixed", 2, 5, Verdict{TotalViolations: 7, HasCritical: true, Outcome: OutcomeCritical}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(violations(tt.critical, tt.nonCritical))
			if got != tt.want {
				t.Errorf("Aggregate = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAggregate_OrderIndependent(t *testing.T) {
	vs := violations(3, 9)
	want := Aggregate(vs)
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 20; i++ {
		shuffled := append([]Violation(nil), vs...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		if got := Aggregate(shuffled); got != want {
			t.Fatalf("shuffle %d: Aggregate = %+v, want %+v", i, got, want)
		}
	}
}

func TestTally_Merge(t *testing.T) {
	vs := violations(2, 4)
	var left, right Tally
	for i, v := range vs {
		if i%2 == 0 {
			left.Add(v)
		} else {
			right.Add(v)
		}
	}

	a, b := left, right
	a.Merge(right)
	b.Merge(left)
	if a != b {
		t.Errorf("Merge not commutative: %+v vs %+v", a, b)
	}
	if got, want := a.Verdict(), Aggregate(vs); got != want {
		t.Errorf("merged Verdict = %+v, want %+v", got, want)
	}

	var empty Tally
	empty.Merge(Tally{})
	if got := empty.Verdict().Outcome; got != OutcomeClean {
		t.Errorf("empty tally outcome = %q, want clean", got)
	}
}
