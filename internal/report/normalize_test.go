package report

import (
	"reflect"
	"testing"
)

func fullScores() Scores {
	return Scores{Accuracy: 5, Terminology: 5, Layout: 5, Grammar: 5, Formatting: 5, Tone: 5}
}

func newReport(level QualityLevel, issues ...Issue) *Report {
	if issues == nil {
		issues = []Issue{}
	}
	return &Report{
		Overall: Overall{
			QualityLevel:     level,
			Scores:           fullScores(),
			SceneDescription: "checkout button label",
			Summary:          "reads naturally",
		},
		Issues:  issues,
		Summary: Summary{Advice: "ship it"},
	}
}

func issue(sev Severity, cat Category) Issue {
	return Issue{ID: string(sev) + "-" + string(cat), Severity: sev, Category: cat}
}

func minors(n int) []Issue {
	out := make([]Issue, n)
	for i := range out {
		out[i] = issue(SeverityMinor, CategoryOther)
	}
	return out
}

func TestTier(t *testing.T) {
	tests := []struct {
		name string
		r    *Report
		want QualityLevel
	}{
		{"critical issue overrides upstream good", newReport(QualityGood, issue(SeverityCritical, CategoryMistranslation)), QualityCritical},
		{"upstream critical with no issues", newReport(QualityCritical), QualityCritical},
		{"no issues", newReport(QualityAverage), QualityExcellent},
		{"one major issue", newReport(QualityExcellent, issue(SeverityMajor, CategoryGrammar)), QualityPoor},
		{"three minor issues", newReport(QualityPoor, minors(3)...), QualityGood},
		{"four minor issues", newReport(QualityGood, minors(4)...), QualityPoor},
		{"single minor issue", newReport(QualityPerfect, issue(SeverityMinor, CategoryStyle)), QualityGood},
		{"critical beats major", newReport(QualityGood, issue(SeverityMajor, CategoryLayout), issue(SeverityCritical, CategoryOther)), QualityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Tier(tt.r); got != tt.want {
				t.Errorf("Tier() = %s, want %s", got, tt.want)
			}
			if got := Normalize(tt.r).Overall.QualityLevel; got != tt.want {
				t.Errorf("Normalize().Overall.QualityLevel = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNormalize_ScoreCaps(t *testing.T) {
	t.Run("caps by severity per mapped dimension", func(t *testing.T) {
		r := newReport(QualityGood,
			issue(SeverityCritical, CategoryMistranslation),
			issue(SeverityMajor, CategoryTerminology),
			issue(SeverityMinor, CategoryStyle),
		)
		got := Normalize(r).Overall.Scores
		want := Scores{Accuracy: 1, Terminology: 2, Layout: 5, Grammar: 5, Formatting: 5, Tone: 4}
		if got != want {
			t.Errorf("scores = %+v, want %+v", got, want)
		}
	})

	t.Run("tightest cap wins regardless of order", func(t *testing.T) {
		r := newReport(QualityGood,
			issue(SeverityMinor, CategoryGrammar),
			issue(SeverityCritical, CategoryGrammar),
			issue(SeverityMajor, CategoryGrammar),
		)
		if got := Normalize(r).Overall.Scores.Grammar; got != 1 {
			t.Errorf("grammar = %v, want 1", got)
		}
	})

	t.Run("never raises a score", func(t *testing.T) {
		r := newReport(QualityGood, issue(SeverityMinor, CategoryLayout))
		r.Overall.Scores.Layout = 2.5
		if got := Normalize(r).Overall.Scores.Layout; got != 2.5 {
			t.Errorf("layout = %v, want 2.5", got)
		}
	})

	t.Run("unmapped categories leave scores alone", func(t *testing.T) {
		r := newReport(QualityGood, issue(SeverityCritical, CategoryOmission), issue(SeverityMajor, CategoryConsistency))
		if got := Normalize(r).Overall.Scores; got != fullScores() {
			t.Errorf("scores = %+v, want untouched", got)
		}
	})
}

func TestNormalize_LeavesTextAndInputUntouched(t *testing.T) {
	r := newReport(QualityExcellent, Issue{
		ID:          "i1",
		Severity:    SeverityMajor,
		Category:    CategoryMistranslation,
		Description: "wrong verb",
		Suggestions: []string{"Buy now"},
	})
	before := r.Clone()

	got := Normalize(r)

	if !reflect.DeepEqual(r, before) {
		t.Fatal("Normalize modified its input")
	}
	if got.Overall.SceneDescription != r.Overall.SceneDescription || got.Overall.Summary != r.Overall.Summary {
		t.Error("free-text overall fields changed")
	}
	if got.Summary != r.Summary {
		t.Error("summary changed")
	}
	if !reflect.DeepEqual(got.Issues, r.Issues) {
		t.Error("issues changed")
	}

	got.Issues[0].Suggestions[0] = "mutated"
	if r.Issues[0].Suggestions[0] != "Buy now" {
		t.Error("result shares suggestion storage with input")
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	reports := []*Report{
		newReport(QualityGood),
		newReport(QualityCritical),
		newReport(QualityExcellent, minors(4)...),
		newReport(QualityPoor, minors(2)...),
		newReport(QualityGood, issue(SeverityCritical, CategoryFormatting), issue(SeverityMinor, CategoryFormatting)),
		newReport(QualityAverage, issue(SeverityMajor, CategoryStyle)),
	}

	for _, r := range reports {
		once := Normalize(r)
		twice := Normalize(once)
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("Normalize not idempotent:\n once=%+v\ntwice=%+v", once, twice)
		}
	}
}

func TestNormalize_Nil(t *testing.T) {
	if Normalize(nil) != nil {
		t.Error("Normalize(nil) should be nil")
	}
}
