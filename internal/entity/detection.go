package entity

// InstitutionDetection is the outcome of institution detection, produced by
// the rule-based detector or the ML-assist classifier.
type InstitutionDetection struct {
	Key         string  `json:"key"`
	DisplayName string  `json:"display_name"`
	Confidence  float64 `json:"confidence"` // in [0,1]
}
