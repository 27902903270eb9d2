package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/finparse/financial-parser/internal/common"
	"github.com/finparse/financial-parser/internal/entity"
)

// ExportTrainingJSON writes every labeled correction as a JSON array of
// training samples, the format the trainer and external tooling consume.
func (s *Store) ExportTrainingJSON(ctx context.Context, path string) (int, error) {
	samples, err := s.TrainingSamples(ctx)
	if err != nil {
		return 0, err
	}
	data, err := json.MarshalIndent(samples, "", "  ")
	if err != nil {
		return 0, common.WrapError(err, "encoding training data")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, common.NewAppError("FEEDBACK_EXPORT", "writing training data", err)
	}
	s.logger.Info("training data exported", "path", path, "samples", len(samples))
	return len(samples), nil
}

const trainingSheet = "Training Data"

// ExportTrainingXLSX writes the labeled corrections as a spreadsheet for
// manual review of the training set.
func (s *Store) ExportTrainingXLSX(ctx context.Context, path string) (int, error) {
	samples, err := s.TrainingSamples(ctx)
	if err != nil {
		return 0, err
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(trainingSheet)
	if err != nil {
		return 0, common.WrapError(err, "creating training sheet")
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"Correct Institution", "Detected Institution", "Confidence", "Document Text"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(trainingSheet, cell, h)
	}
	f.SetColWidth(trainingSheet, "A", "B", 22)
	f.SetColWidth(trainingSheet, "D", "D", 80)

	for row, sample := range samples {
		setRow(f, row+2, sample)
	}

	if err := f.SaveAs(path); err != nil {
		return 0, common.NewAppError("FEEDBACK_EXPORT", "writing training spreadsheet", err)
	}
	s.logger.Info("training spreadsheet exported", "path", path, "samples", len(samples))
	return len(samples), nil
}

func setRow(f *excelize.File, row int, sample entity.TrainingSample) {
	f.SetCellValue(trainingSheet, fmt.Sprintf("A%d", row), sample.CorrectInstitution)
	if sample.DetectedInstitution != nil {
		f.SetCellValue(trainingSheet, fmt.Sprintf("B%d", row), *sample.DetectedInstitution)
	}
	if sample.Confidence != nil {
		f.SetCellValue(trainingSheet, fmt.Sprintf("C%d", row), *sample.Confidence)
	}
	text := sample.Text
	if len(text) > 500 {
		text = text[:500]
	}
	f.SetCellValue(trainingSheet, fmt.Sprintf("D%d", row), text)
}
