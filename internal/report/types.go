package report

// QualityLevel is the discrete quality tier of a translation.
type QualityLevel string

const (
	QualityCritical  QualityLevel = "Critical"
	QualityPoor      QualityLevel = "Poor"
	QualityAverage   QualityLevel = "Average"
	QualityGood      QualityLevel = "Good"
	QualityExcellent QualityLevel = "Excellent"

	// QualityPerfect is accepted from upstream as a synonym of Excellent.
	// Normalization never produces it.
	QualityPerfect QualityLevel = "Perfect"
)

// Severity is how badly an issue affects the translation.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityMajor    Severity = "Major"
	SeverityMinor    Severity = "Minor"
)

// Category classifies what kind of problem an issue describes.
type Category string

const (
	CategoryMistranslation Category = "mistranslation"
	CategoryTerminology    Category = "terminology"
	CategoryLayout         Category = "layout"
	CategoryGrammar        Category = "grammar"
	CategoryFormatting     Category = "formatting"
	CategoryStyle          Category = "style"
	CategoryOmission       Category = "omission"
	CategoryConsistency    Category = "consistency"
	CategoryOther          Category = "other"
)

// Categories lists every category the analyzer may report.
var Categories = []Category{
	CategoryMistranslation,
	CategoryTerminology,
	CategoryLayout,
	CategoryGrammar,
	CategoryFormatting,
	CategoryStyle,
	CategoryOmission,
	CategoryConsistency,
	CategoryOther,
}

// Dimension names one of the six scored aspects of a translation.
type Dimension string

const (
	DimensionAccuracy    Dimension = "accuracy"
	DimensionTerminology Dimension = "terminology"
	DimensionLayout      Dimension = "layout"
	DimensionGrammar     Dimension = "grammar"
	DimensionFormatting  Dimension = "formatting"
	DimensionTone        Dimension = "tone"
)

// Dimensions lists the score dimensions in display order.
var Dimensions = []Dimension{
	DimensionAccuracy,
	DimensionTerminology,
	DimensionLayout,
	DimensionGrammar,
	DimensionFormatting,
	DimensionTone,
}

// MaxScore is the top of the 0-5 score scale.
const MaxScore = 5.0

// Scores holds the six per-dimension scores, each in [0, MaxScore].
type Scores struct {
	Accuracy    float64 `json:"accuracy" yaml:"accuracy"`
	Terminology float64 `json:"terminology" yaml:"terminology"`
	Layout      float64 `json:"layout" yaml:"layout"`
	Grammar     float64 `json:"grammar" yaml:"grammar"`
	Formatting  float64 `json:"formatting" yaml:"formatting"`
	Tone        float64 `json:"tone" yaml:"tone"`
}

// Get returns the score for a dimension.
func (s *Scores) Get(d Dimension) float64 {
	if p := s.field(d); p != nil {
		return *p
	}
	return 0
}

// Set assigns the score for a dimension. Unknown dimensions are ignored.
func (s *Scores) Set(d Dimension, v float64) {
	if p := s.field(d); p != nil {
		*p = v
	}
}

func (s *Scores) field(d Dimension) *float64 {
	switch d {
	case DimensionAccuracy:
		return &s.Accuracy
	case DimensionTerminology:
		return &s.Terminology
	case DimensionLayout:
		return &s.Layout
	case DimensionGrammar:
		return &s.Grammar
	case DimensionFormatting:
		return &s.Formatting
	case DimensionTone:
		return &s.Tone
	}
	return nil
}

// Overall is the report-level assessment.
type Overall struct {
	QualityLevel     QualityLevel `json:"qualityLevel" yaml:"quality_level"`
	Scores           Scores       `json:"scores" yaml:"scores"`
	SceneDescription string       `json:"sceneDescription,omitempty" yaml:"scene_description,omitempty"`
	Summary          string       `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// Issue is a single finding reported by the analyzer.
type Issue struct {
	ID          string   `json:"id" yaml:"id"`
	Severity    Severity `json:"severity" yaml:"severity"`
	Category    Category `json:"issueCategory" yaml:"issue_category"`
	Location    string   `json:"location,omitempty" yaml:"location,omitempty"`
	SourceText  string   `json:"sourceText,omitempty" yaml:"source_text,omitempty"`
	TargetText  string   `json:"targetText,omitempty" yaml:"target_text,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Suggestions []string `json:"suggestions,omitempty" yaml:"suggestions,omitempty"`
}

// Summary carries the analyzer's issue counts and advice.
type Summary struct {
	SevereCount int    `json:"severeCount" yaml:"severe_count"`
	MajorCount  int    `json:"majorCount" yaml:"major_count"`
	MinorCount  int    `json:"minorCount" yaml:"minor_count"`
	Advice      string `json:"advice,omitempty" yaml:"advice,omitempty"`
}

// Report is the structured result of analyzing one source/target pair.
type Report struct {
	Overall Overall `json:"overall" yaml:"overall"`
	Issues  []Issue `json:"issues" yaml:"issues"`
	Summary Summary `json:"summary" yaml:"summary"`
}

// Clone returns a deep copy of the report.
func (r *Report) Clone() *Report {
	if r == nil {
		return nil
	}
	out := *r
	out.Issues = make([]Issue, len(r.Issues))
	for i, issue := range r.Issues {
		if issue.Suggestions != nil {
			issue.Suggestions = append([]string(nil), issue.Suggestions...)
		}
		out.Issues[i] = issue
	}
	return &out
}
