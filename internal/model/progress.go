package model

// Progress counts answered slots of a part or section.
type Progress struct {
	Answered int `json:"answered"`
	Total    int `json:"total"`
}

// AggregateProgress sums the three non-writing sections.
type AggregateProgress struct {
	Progress
	HasMinimumForWriting bool `json:"has_minimum_for_writing"`
}

// HasMinimum reports whether at least half of the non-writing slots,
// rounded up, are answered: answered >= ceil(total * 0.5).
func HasMinimum(answered, total int) bool {
	required := (total + 1) / 2
	return answered >= required
}
