package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/examportal/portal-backend/internal/model"
	"github.com/xuri/excelize/v2"
)

// reportTable is a rendering-neutral layout of a report: a title, summary
// pairs and any number of titled tables.
type reportTable struct {
	Title    string
	Summary  [][2]string
	Sections []reportSection
}

type reportSection struct {
	Title  string
	Header []string
	Rows   [][]string
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func periodLine(p model.ReportPeriod) [2]string {
	return [2]string{"Period", fmt.Sprintf("%s to %s (%d days)",
		p.Start.Format(time.DateOnly), p.End.Format(time.DateOnly), p.Days)}
}

func participationTable(r *model.ParticipationReport) reportTable {
	t := reportTable{
		Title: "Participation Report",
		Summary: [][2]string{
			periodLine(r.Period),
			{"Total Users", strconv.Itoa(r.TotalUsers)},
			{"Active Users", strconv.Itoa(r.ActiveUsers)},
			{"New Users", strconv.Itoa(r.NewUsers)},
			{"Total Exams", strconv.Itoa(r.TotalExams)},
			{"Completed Exams", strconv.Itoa(r.CompletedExams)},
			{"Average Score", fmtFloat(r.AverageScore)},
		},
	}
	dept := reportSection{
		Title:  "Department Breakdown",
		Header: []string{"Department", "Total Exams", "Completed", "Average Score"},
	}
	for _, d := range r.DepartmentBreakdown {
		dept.Rows = append(dept.Rows, []string{d.Department, strconv.Itoa(d.Total), strconv.Itoa(d.Completed), fmtFloat(d.AvgScore)})
	}
	t.Sections = append(t.Sections, dept)
	return t
}

func passRateTable(r *model.PassRateReport) reportTable {
	t := reportTable{
		Title: "Pass Rate Report",
		Summary: [][2]string{
			periodLine(r.Period),
			{"Passing Score", fmtFloat(r.PassingScore)},
			{"Total Exams", strconv.Itoa(r.TotalExams)},
			{"Passing Exams", strconv.Itoa(r.PassingExams)},
			{"Overall Pass Rate", fmtFloat(r.OverallPassRate) + "%"},
		},
	}
	dept := reportSection{
		Title:  "Department Breakdown",
		Header: []string{"Department", "Total Exams", "Passing", "Pass Rate (%)", "Average Score"},
	}
	for _, d := range r.DepartmentBreakdown {
		dept.Rows = append(dept.Rows, []string{d.Department, strconv.Itoa(d.Total), strconv.Itoa(d.Passing), fmtFloat(d.PassRate), fmtFloat(d.AvgScore)})
	}
	types := reportSection{
		Title:  "Question Type Breakdown",
		Header: []string{"Question Type", "Total Answers", "Correct", "Success Rate (%)"},
	}
	for _, q := range r.QuestionTypeBreakdown {
		types.Rows = append(types.Rows, []string{q.Name, strconv.Itoa(q.Total), strconv.Itoa(q.Correct), fmtFloat(q.SuccessRate)})
	}
	t.Sections = append(t.Sections, dept, types)
	return t
}

func (t reportTable) writeCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	records := [][]string{{t.Title}, {}}
	for _, kv := range t.Summary {
		records = append(records, []string{kv[0], kv[1]})
	}
	for _, s := range t.Sections {
		records = append(records, []string{}, []string{s.Title}, s.Header)
		records = append(records, s.Rows...)
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func (t reportTable) writeExcel(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Report"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	title, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return err
	}

	row := 1
	setRow := func(values []string, style int) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		vals := make([]interface{}, len(values))
		for i, v := range values {
			vals[i] = v
		}
		if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
			return err
		}
		if style != 0 && len(values) > 0 {
			end, _ := excelize.CoordinatesToCellName(len(values), row)
			if err := f.SetCellStyle(sheet, cell, end, style); err != nil {
				return err
			}
		}
		row++
		return nil
	}

	if err := setRow([]string{t.Title}, title); err != nil {
		return err
	}
	row++
	for _, kv := range t.Summary {
		if err := setRow([]string{kv[0], kv[1]}, 0); err != nil {
			return err
		}
	}
	for _, s := range t.Sections {
		row++
		if err := setRow([]string{s.Title}, bold); err != nil {
			return err
		}
		if err := setRow(s.Header, bold); err != nil {
			return err
		}
		for _, r := range s.Rows {
			if err := setRow(r, 0); err != nil {
				return err
			}
		}
	}
	if err := f.SetColWidth(sheet, "A", "E", 22); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// WriteParticipationCSV renders a participation report as CSV.
func WriteParticipationCSV(w io.Writer, r *model.ParticipationReport) error {
	return participationTable(r).writeCSV(w)
}

// WriteParticipationExcel renders a participation report as an xlsx workbook.
func WriteParticipationExcel(w io.Writer, r *model.ParticipationReport) error {
	return participationTable(r).writeExcel(w)
}

// WritePassRateCSV renders a pass-rate report as CSV.
func WritePassRateCSV(w io.Writer, r *model.PassRateReport) error {
	return passRateTable(r).writeCSV(w)
}

// WritePassRateExcel renders a pass-rate report as an xlsx workbook.
func WritePassRateExcel(w io.Writer, r *model.PassRateReport) error {
	return passRateTable(r).writeExcel(w)
}
