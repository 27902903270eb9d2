package entity

import (
	"time"

	"github.com/finparse/financial-parser/constants"
)

// FeedbackRecord is one user correction, as stored in the feedback table.
// Records are created on submission, flipped to Processed once consumed by
// retraining, and never deleted.
type FeedbackRecord struct {
	ID                   int64                  `json:"id"`
	Timestamp            time.Time              `json:"timestamp"`
	DocumentText         string                 `json:"document_text"`
	DetectedInstitution  *string                `json:"detected_institution,omitempty"`
	CorrectInstitution   *string                `json:"correct_institution,omitempty"`
	DetectionConfidence  *float64               `json:"detection_confidence,omitempty"`
	ExtractedData        map[string]any         `json:"extracted_data,omitempty"`
	CorrectData          map[string]any         `json:"correct_data,omitempty"`
	FeedbackType         constants.FeedbackType `json:"feedback_type"`
	UserComment          *string                `json:"user_comment,omitempty"`
	Processed            bool                   `json:"processed"`
}

// TrainingSample is the shape consumed by the ML-assist trainer.
type TrainingSample struct {
	Text               string   `json:"text"`
	CorrectInstitution string   `json:"correct_bank"`
	DetectedInstitution *string `json:"detected_bank,omitempty"`
	Confidence         *float64 `json:"confidence,omitempty"`
}
