package entities

// Severity is the qualitative weight attached to a behavior category.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Weight returns the numeric multiplier used in scoring and concern ranking.
func (s Severity) Weight() float64 {
	switch s {
	case SeverityHigh:
		return 3.0
	case SeverityMedium:
		return 2.0
	default:
		return 1.0
	}
}

// IsValid reports whether the severity is one of the known levels.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// BehaviorDefinition is one immutable entry of the behavior catalog: the
// natural-language query issued against the video search service together
// with the filtering and merge parameters applied to its hits.
type BehaviorDefinition struct {
	BehaviorType        string   `json:"behavior_type" yaml:"behavior_type" validate:"required"`
	QueryText           string   `json:"query_text" yaml:"query_text" validate:"required"`
	Severity            Severity `json:"severity" yaml:"severity" validate:"required,oneof=low medium high"`
	ConfidenceThreshold float64  `json:"confidence_threshold" yaml:"confidence_threshold" validate:"gte=0,lte=1"`
	MinDurationS        float64  `json:"min_duration_s" yaml:"min_duration_s" validate:"gte=0"`
	MaxDurationS        float64  `json:"max_duration_s" yaml:"max_duration_s" validate:"gtfield=MinDurationS"`
	MergeGapS           float64  `json:"merge_gap_s" yaml:"merge_gap_s" validate:"gte=0"`
}

// Well-known behavior categories. The catalog is data-driven, so these are
// only referenced by the default profiles and the metric mapping.
const (
	BehaviorLookingAway      = "looking_away"
	BehaviorMultiplePeople   = "multiple_people"
	BehaviorPhoneUsage       = "phone_usage"
	BehaviorPersonAbsent     = "person_absent"
	BehaviorTalkingToSomeone = "talking_to_someone"
	BehaviorReadingFromNotes = "reading_from_notes"
	BehaviorBackgroundVoices = "background_voices"
)
