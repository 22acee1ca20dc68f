package statistics

// Snapshot is a read-only view of a quiz statistic. It carries counts only.
type Snapshot struct {
	QuizID       string             `json:"quizId"`
	Participants Counts             `json:"participants"`
	Points       []PointCount       `json:"points"`
	Questions    []QuestionSnapshot `json:"questions"`
	Rebuilding   bool               `json:"rebuilding"`
	// Version grows with every change, so readers can drop older snapshots.
	Version uint64 `json:"version"`
}

// PointCount is one bar of the points histogram.
type PointCount struct {
	Points int `json:"points"`
	Counts
}

type QuestionSnapshot struct {
	QuestionID   int64          `json:"questionId"`
	Participants Counts         `json:"participants"`
	Correct      Counts         `json:"correct"`
	Elements     []ElementCount `json:"elements"`
}

type ElementCount struct {
	ElementID int64 `json:"elementId"`
	Counts
}

// Question returns the counters of one question.
func (s Snapshot) Question(id int64) (QuestionSnapshot, bool) {
	for _, q := range s.Questions {
		if q.QuestionID == id {
			return q, true
		}
	}
	return QuestionSnapshot{}, false
}

// Element returns the counter of one answer element.
func (q QuestionSnapshot) Element(id int64) (Counts, bool) {
	for _, e := range q.Elements {
		if e.ElementID == id {
			return e.Counts, true
		}
	}
	return Counts{}, false
}

// HistogramTotal sums the rated and unrated counts over all point values.
func (s Snapshot) HistogramTotal() Counts {
	var total Counts
	for _, p := range s.Points {
		total.Rated += p.Rated
		total.Unrated += p.Unrated
	}
	return total
}
