package constants

// FeedbackType is the canonical type for rows in the feedback table.
type FeedbackType string

const (
	FeedbackCorrection FeedbackType = "correction"
	FeedbackSuggestion FeedbackType = "suggestion"
	FeedbackBug        FeedbackType = "bug"
)

// IsValidFeedbackType reports whether s is a recognized feedback type.
func IsValidFeedbackType(s string) bool {
	switch FeedbackType(s) {
	case FeedbackCorrection, FeedbackSuggestion, FeedbackBug:
		return true
	}
	return false
}
