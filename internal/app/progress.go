package app

import (
	"math"
	"time"

	"classboard-service/internal/domain"
)

// Report carries the two numbers the monitor shows per student, recomputed as
// a pure function of the latest answer and the exercise content. Free-drop
// boards have no canonical answer: Gradable is false and Accuracy stays at
// the 100% presentation convention.
type Report struct {
	Progress int  `json:"progress"`
	Correct  int  `json:"correct"`
	Total    int  `json:"total"`
	Accuracy int  `json:"accuracy"`
	Gradable bool `json:"gradable"`
	Solved   bool `json:"solved"`
}

// StudentProgress pairs a student with their evaluated report.
type StudentProgress struct {
	ConnectionID string    `json:"id"`
	DisplayName  string    `json:"name"`
	Report       Report    `json:"report"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Evaluate derives progress and accuracy for one student. A nil answer means
// the student has submitted nothing yet and scores 0% progress, never an
// error. Submitting the same state twice yields the same report.
func Evaluate(ex domain.Exercise, ans *domain.Answer) Report {
	report := Report{Total: ex.TotalUnits(), Gradable: ex.Kind != domain.KindFreeDrop}
	if !report.Gradable {
		report.Accuracy = 100
	}
	if ans == nil || report.Total == 0 {
		return report
	}

	switch ex.Kind {
	case domain.KindFillBlanks:
		report.Progress = percent(len(ans.Blanks), report.Total)
		for _, blank := range ex.Blanks {
			if word, ok := ans.Blanks[blank.ID]; ok && word == blank.Word {
				report.Correct++
			}
		}
		report.Accuracy = percent(report.Correct, report.Total)
		report.Solved = report.Correct == report.Total

	case domain.KindOrderMatching:
		report.Progress = percent(len(ans.Steps), report.Total)
		for i, step := range ex.Steps {
			if i < len(ans.Steps) && ans.Steps[i] == step.ID {
				report.Correct++
			}
		}
		report.Accuracy = percent(report.Correct, report.Total)
		report.Solved = len(ans.Steps) == report.Total && report.Correct == report.Total

	case domain.KindFreeDrop:
		report.Progress = percent(ans.PlacedCount(), report.Total)
	}
	return report
}

func percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
