package analytics

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/vnkhanh/surveyflow/models"
)

const (
	SheetResponses = "Responses"
	SheetSummary   = "Summary"
)

func header(survey models.Survey) []string {
	h := []string{"Response ID", "Submitted At", "Fingerprint"}
	for _, q := range survey.Questions {
		h = append(h, q.Prompt)
	}
	return h
}

func row(survey models.Survey, r models.SurveyResponse) []string {
	out := []string{r.ID, r.SubmittedAt.UTC().Format(time.RFC3339), r.Fingerprint}
	for _, q := range survey.Questions {
		out = append(out, r.Answers[q.ID].String())
	}
	return out
}

// WriteCSV writes one row per response, with a column per question.
func WriteCSV(w io.Writer, survey models.Survey, responses []models.SurveyResponse) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header(survey)); err != nil {
		return err
	}
	for _, r := range responses {
		if err := cw.Write(row(survey, r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the CSV table to the Responses sheet and the per-question
// tallies to the Summary sheet.
func WriteXLSX(w io.Writer, survey models.Survey, responses []models.SurveyResponse) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetResponses); err != nil {
		return err
	}
	if err := setRow(f, SheetResponses, 1, header(survey)); err != nil {
		return err
	}
	for i, r := range responses {
		if err := setRow(f, SheetResponses, i+2, row(survey, r)); err != nil {
			return err
		}
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header(survey)), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetResponses, "A1", last, style); err != nil {
		return err
	}

	if _, err := f.NewSheet(SheetSummary); err != nil {
		return err
	}
	line := 1
	put := func(values ...interface{}) error {
		cell, err := excelize.CoordinatesToCellName(1, line)
		if err != nil {
			return err
		}
		line++
		return f.SetSheetRow(SheetSummary, cell, &values)
	}

	if err := put("Survey", survey.Title); err != nil {
		return err
	}
	if err := put("Total Responses", len(responses)); err != nil {
		return err
	}
	for i, qa := range TallyAll(survey, responses) {
		line++
		if err := put(fmt.Sprintf("Question %d", i+1), qa.Prompt, qa.Type); err != nil {
			return err
		}
		if err := put("Answered", qa.Answered); err != nil {
			return err
		}
		if qa.Kind == KindText {
			if err := put("Text responses", len(qa.Values)); err != nil {
				return err
			}
			continue
		}
		for _, e := range qa.Entries {
			if err := put(e.Option, e.Count, e.Percentage); err != nil {
				return err
			}
		}
	}

	_, err = f.WriteTo(w)
	return err
}

func setRow(f *excelize.File, sheet string, line int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, line)
	if err != nil {
		return err
	}
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	return f.SetSheetRow(sheet, cell, &row)
}
