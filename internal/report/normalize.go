package report

// minorIssueLimit is the number of Minor issues tolerated before a report drops to Poor.
const minorIssueLimit = 3

// categoryDimension maps issue categories onto the score they cap.
// Categories absent from the table never touch a score.
var categoryDimension = map[Category]Dimension{
	CategoryMistranslation: DimensionAccuracy,
	CategoryTerminology:    DimensionTerminology,
	CategoryLayout:         DimensionLayout,
	CategoryGrammar:        DimensionGrammar,
	CategoryFormatting:     DimensionFormatting,
	CategoryStyle:          DimensionTone,
}

// severityCap is the highest score a dimension may keep once an issue of
// the given severity touches it.
var severityCap = map[Severity]float64{
	SeverityCritical: 1,
	SeverityMajor:    2,
	SeverityMinor:    4,
}

// DimensionFor reports which score an issue category caps.
func DimensionFor(c Category) (Dimension, bool) {
	d, ok := categoryDimension[c]
	return d, ok
}

// Normalize derives the quality tier and score ceilings from the report's
// own issues, overriding the upstream classification. The input is not
// modified. The result depends only on the issues and the upstream
// quality level, and Normalize(Normalize(r)) equals Normalize(r).
func Normalize(r *Report) *Report {
	if r == nil {
		return nil
	}
	out := r.Clone()
	out.Overall.QualityLevel = Tier(r)

	caps := make(map[Dimension]float64, len(categoryDimension))
	for _, issue := range r.Issues {
		dim, ok := categoryDimension[issue.Category]
		if !ok {
			continue
		}
		limit, ok := severityCap[issue.Severity]
		if !ok {
			continue
		}
		if cur, seen := caps[dim]; !seen || limit < cur {
			caps[dim] = limit
		}
	}
	for dim, limit := range caps {
		if out.Overall.Scores.Get(dim) > limit {
			out.Overall.Scores.Set(dim, limit)
		}
	}
	return out
}

// Tier classifies a report. Rules apply in priority order and the first
// match wins: any Critical issue or an upstream Critical level; any Major
// issue or more than three Minor issues; no issues at all; otherwise Good.
func Tier(r *Report) QualityLevel {
	var critical, major, minor int
	for _, issue := range r.Issues {
		switch issue.Severity {
		case SeverityCritical:
			critical++
		case SeverityMajor:
			major++
		case SeverityMinor:
			minor++
		}
	}

	switch {
	case critical > 0 || r.Overall.QualityLevel == QualityCritical:
		return QualityCritical
	case major > 0 || minor > minorIssueLimit:
		return QualityPoor
	case len(r.Issues) == 0:
		return QualityExcellent
	default:
		return QualityGood
	}
}
