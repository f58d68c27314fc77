package review

// Tally accumulates violation counts. The zero value is an empty tally.
// Add and Merge commute, so partial tallies from independent workers can be
// combined in any order.
type Tally struct {
	Total    int
	Critical int
}

// Add counts one violation.
func (t *Tally) Add(v Violation) {
	t.Total++
	if v.Critical {
		t.Critical++
	}
}

// Merge folds another tally into t.
func (t *Tally) Merge(o Tally) {
	t.Total += o.Total
	t.Critical += o.Critical
}

// Verdict derives the verdict for the counted violations.
func (t Tally) Verdict() Verdict {
	v := Verdict{
		TotalViolations: t.Total,
		HasCritical:     t.Critical > 0,
		Outcome:         OutcomeClean,
	}
	switch {
	case v.HasCritical:
		v.Outcome = OutcomeCritical
	case t.Total > 0:
		v.Outcome = OutcomeViolations
	}
	return v
}

// Aggregate computes the verdict for a list of violations.
func Aggregate(violations []Violation) Verdict {
	var t Tally
	for _, v := range violations {
		t.Add(v)
	}
	return t.Verdict()
}
