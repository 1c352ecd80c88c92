package model

import "time"

// ReportFormat selects the rendering of a report.
type ReportFormat string

const (
	ReportFormatJSON  ReportFormat = "json"
	ReportFormatCSV   ReportFormat = "csv"
	ReportFormatExcel ReportFormat = "excel"
)

// ReportQuery holds the query parameters accepted by report endpoints.
type ReportQuery struct {
	Days         int          `form:"days" binding:"omitempty,min=1,max=3650"`
	Format       ReportFormat `form:"format" binding:"omitempty,oneof=json csv excel"`
	PassingScore *float64     `form:"passing_score" binding:"omitempty,min=0,max=100"`
}

// ReportPeriod is the window a report covers.
type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Days  int       `json:"days"`
}

// DepartmentParticipation is one row of the participation breakdown.
type DepartmentParticipation struct {
	Department string  `json:"department"`
	Total      int     `json:"total"`
	Completed  int     `json:"completed"`
	AvgScore   float64 `json:"avg_score"`
}

// ParticipationReport summarises activity over a period.
type ParticipationReport struct {
	Period              ReportPeriod              `json:"period"`
	TotalUsers          int                       `json:"total_users"`
	ActiveUsers         int                       `json:"active_users"`
	NewUsers            int                       `json:"new_users"`
	TotalExams          int                       `json:"total_exams"`
	CompletedExams      int                       `json:"completed_exams"`
	AverageScore        float64                   `json:"average_score"`
	DepartmentBreakdown []DepartmentParticipation `json:"department_breakdown"`
}

// DepartmentPassRate is one row of the pass-rate department breakdown.
type DepartmentPassRate struct {
	Department string  `json:"department"`
	Total      int     `json:"total"`
	Passing    int     `json:"passing"`
	PassRate   float64 `json:"pass_rate"`
	AvgScore   float64 `json:"avg_score"`
}

// QuestionTypeSuccess is one row of the pass-rate question type breakdown.
type QuestionTypeSuccess struct {
	Type        QuestionType `json:"type"`
	Name        string       `json:"name"`
	Total       int          `json:"total"`
	Correct     int          `json:"correct"`
	SuccessRate float64      `json:"success_rate"`
}

// PassRateReport summarises completed exams against a passing threshold.
type PassRateReport struct {
	Period                ReportPeriod          `json:"period"`
	PassingScore          float64               `json:"passing_score"`
	TotalExams            int                   `json:"total_exams"`
	PassingExams          int                   `json:"passing_exams"`
	OverallPassRate       float64               `json:"overall_pass_rate"`
	DepartmentBreakdown   []DepartmentPassRate  `json:"department_breakdown"`
	QuestionTypeBreakdown []QuestionTypeSuccess `json:"question_type_breakdown"`
}

// CompletedExamRow is a completed exam as read for report aggregation.
type CompletedExamRow struct {
	Department string
	Score      float64
}

// ExamCountRow is a department's exam counts as read for report aggregation.
type ExamCountRow struct {
	Department string
	Total      int
	Completed  int
	ScoreSum   float64
}

// TypeAnswerRow is an aggregate of answers by question type.
type TypeAnswerRow struct {
	Type    QuestionType
	Total   int
	Correct int
}
