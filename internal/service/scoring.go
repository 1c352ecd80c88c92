package service

import (
	"math"
	"sort"

	"github.com/examportal/portal-backend/internal/model"
)

// GradedAnswer is a validated (question, answer) pair with its frozen correctness.
type GradedAnswer struct {
	QuestionID   int64
	AnswerID     int64
	QuestionType model.QuestionType
	IsCorrect    bool
}

// Percentage returns correct/total*100 rounded to two decimals, or 0 when total is 0.
func Percentage(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(correct) / float64(total) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CountCorrect returns the number of correct answers in graded.
func CountCorrect(graded []GradedAnswer) int {
	n := 0
	for _, g := range graded {
		if g.IsCorrect {
			n++
		}
	}
	return n
}

// Grade validates submitted pairs against the answer key in questions.
// A pair is kept only when its question is known, belongs to departmentID
// (0 accepts any department) and owns the selected answer. Repeated
// questions keep their first occurrence. Invalid pairs are dropped silently.
func Grade(submitted []model.SubmittedAnswer, questions []model.Question, departmentID int64) []GradedAnswer {
	byID := make(map[int64]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	seen := make(map[int64]struct{}, len(submitted))
	graded := make([]GradedAnswer, 0, len(submitted))
	for _, s := range submitted {
		q, ok := byID[s.QuestionID]
		if !ok {
			continue
		}
		if departmentID != 0 && q.DepartmentID != departmentID {
			continue
		}
		if _, dup := seen[s.QuestionID]; dup {
			continue
		}
		for _, a := range q.Answers {
			if a.ID != s.AnswerID {
				continue
			}
			seen[s.QuestionID] = struct{}{}
			graded = append(graded, GradedAnswer{
				QuestionID:   q.ID,
				AnswerID:     a.ID,
				QuestionType: q.QuestionType,
				IsCorrect:    a.IsCorrect,
			})
			break
		}
	}
	return graded
}

// Breakdown groups graded answers by question type, ascending by type.
// Only types present in rows are returned.
func Breakdown(rows []model.TypeAnswerRow) []model.TypeBreakdown {
	merged := make(map[model.QuestionType]*model.TypeAnswerRow)
	for _, r := range rows {
		m, ok := merged[r.Type]
		if !ok {
			m = &model.TypeAnswerRow{Type: r.Type}
			merged[r.Type] = m
		}
		m.Total += r.Total
		m.Correct += r.Correct
	}

	out := make([]model.TypeBreakdown, 0, len(merged))
	for t, m := range merged {
		out = append(out, model.TypeBreakdown{
			Type:       t,
			Name:       t.Name(),
			Total:      m.Total,
			Correct:    m.Correct,
			Percentage: Percentage(m.Correct, m.Total),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// TypeRows collapses graded answers into per-type aggregate rows.
func TypeRows(graded []GradedAnswer) []model.TypeAnswerRow {
	rows := make([]model.TypeAnswerRow, 0, len(graded))
	for _, g := range graded {
		r := model.TypeAnswerRow{Type: g.QuestionType, Total: 1}
		if g.IsCorrect {
			r.Correct = 1
		}
		rows = append(rows, r)
	}
	return rows
}

// PassRate counts scores at or above threshold and returns the passing count
// together with the pass rate percentage.
func PassRate(scores []float64, threshold float64) (int, float64) {
	passing := 0
	for _, s := range scores {
		if s >= threshold {
			passing++
		}
	}
	return passing, Percentage(passing, len(scores))
}

// Average returns the mean of values rounded to two decimals, or 0 when empty.
func Average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return round2(sum / float64(len(values)))
}
