package scoring

// Streak tracks consecutive correct tendencies for a contestant.
type Streak struct {
	Current int `json:"current"`
	Best    int `json:"best"`
}

// Advance returns the streak after one more scored prediction.
func (s Streak) Advance(correct bool) Streak {
	if !correct {
		return Streak{Current: 0, Best: s.Best}
	}
	next := Streak{Current: s.Current + 1, Best: s.Best}
	if next.Current > next.Best {
		next.Best = next.Current
	}
	return next
}
