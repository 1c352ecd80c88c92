package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/examportal/portal-backend/internal/model"
)

// ReportStore runs the aggregate queries behind reports.
type ReportStore interface {
	UserCounts(ctx context.Context, since time.Time) (total, active, created int, err error)
	ExamCountsByDepartment(ctx context.Context, since time.Time) ([]model.ExamCountRow, error)
	CompletedExams(ctx context.Context, since time.Time) ([]model.CompletedExamRow, error)
	AnswersByType(ctx context.Context, since time.Time) ([]model.TypeAnswerRow, error)
}

// DefaultReportDays is the window used when a report query omits days.
const DefaultReportDays = 30

// ReportService builds participation and pass-rate statistics.
type ReportService struct {
	store        ReportStore
	passingScore float64
	now          func() time.Time
}

// NewReportService creates a new ReportService.
func NewReportService(store ReportStore, passingScore float64) *ReportService {
	return &ReportService{store: store, passingScore: passingScore, now: time.Now}
}

func (s *ReportService) period(days int) model.ReportPeriod {
	if days <= 0 {
		days = DefaultReportDays
	}
	end := s.now()
	return model.ReportPeriod{Start: end.AddDate(0, 0, -days), End: end, Days: days}
}

// Participation summarises users and exams over the last days.
func (s *ReportService) Participation(ctx context.Context, days int) (*model.ParticipationReport, error) {
	p := s.period(days)

	total, active, created, err := s.store.UserCounts(ctx, p.Start)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	rows, err := s.store.ExamCountsByDepartment(ctx, p.Start)
	if err != nil {
		return nil, fmt.Errorf("count exams: %w", err)
	}

	r := &model.ParticipationReport{
		Period:              p,
		TotalUsers:          total,
		ActiveUsers:         active,
		NewUsers:            created,
		DepartmentBreakdown: make([]model.DepartmentParticipation, 0, len(rows)),
	}
	scoreSum := 0.0
	for _, row := range rows {
		r.TotalExams += row.Total
		r.CompletedExams += row.Completed
		scoreSum += row.ScoreSum
		avg := 0.0
		if row.Completed > 0 {
			avg = round2(row.ScoreSum / float64(row.Completed))
		}
		r.DepartmentBreakdown = append(r.DepartmentBreakdown, model.DepartmentParticipation{
			Department: row.Department,
			Total:      row.Total,
			Completed:  row.Completed,
			AvgScore:   avg,
		})
	}
	if r.CompletedExams > 0 {
		r.AverageScore = round2(scoreSum / float64(r.CompletedExams))
	}
	return r, nil
}

// PassRate summarises completed exams against a passing threshold.
// A nil threshold uses the configured passing score.
func (s *ReportService) PassRate(ctx context.Context, days int, threshold *float64) (*model.PassRateReport, error) {
	p := s.period(days)
	passing := s.passingScore
	if threshold != nil {
		passing = *threshold
	}

	exams, err := s.store.CompletedExams(ctx, p.Start)
	if err != nil {
		return nil, fmt.Errorf("list completed exams: %w", err)
	}
	typeRows, err := s.store.AnswersByType(ctx, p.Start)
	if err != nil {
		return nil, fmt.Errorf("aggregate answers: %w", err)
	}

	r := BuildPassRate(exams, typeRows, passing)
	r.Period = p
	return r, nil
}

// BuildPassRate aggregates completed exams and per-type answer rows.
func BuildPassRate(exams []model.CompletedExamRow, typeRows []model.TypeAnswerRow, passing float64) *model.PassRateReport {
	scores := make([]float64, len(exams))
	byDept := make(map[string][]float64)
	for i, e := range exams {
		scores[i] = e.Score
		byDept[e.Department] = append(byDept[e.Department], e.Score)
	}

	r := &model.PassRateReport{PassingScore: passing, TotalExams: len(exams)}
	r.PassingExams, r.OverallPassRate = PassRate(scores, passing)

	names := make([]string, 0, len(byDept))
	for name := range byDept {
		names = append(names, name)
	}
	sort.Strings(names)

	r.DepartmentBreakdown = make([]model.DepartmentPassRate, 0, len(names))
	for _, name := range names {
		ds := byDept[name]
		n, rate := PassRate(ds, passing)
		r.DepartmentBreakdown = append(r.DepartmentBreakdown, model.DepartmentPassRate{
			Department: name,
			Total:      len(ds),
			Passing:    n,
			PassRate:   rate,
			AvgScore:   Average(ds),
		})
	}

	breakdown := Breakdown(typeRows)
	r.QuestionTypeBreakdown = make([]model.QuestionTypeSuccess, 0, len(breakdown))
	for _, b := range breakdown {
		r.QuestionTypeBreakdown = append(r.QuestionTypeBreakdown, model.QuestionTypeSuccess{
			Type:        b.Type,
			Name:        b.Name,
			Total:       b.Total,
			Correct:     b.Correct,
			SuccessRate: b.Percentage,
		})
	}
	return r
}
