package report

// SchemaName identifies the report schema in structured-output requests.
const SchemaName = "translation_quality_report"

func stringEnum[T ~string](values ...T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

var scoreProperty = map[string]any{
	"type":    "number",
	"minimum": 0,
	"maximum": MaxScore,
}

// ResponseSchema is the JSON schema for analyzer output.
var ResponseSchema = map[string]any{
	"type": "json_schema",
	"json_schema": map[string]any{
		"name":   SchemaName,
		"strict": false,
		"schema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"overall": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"qualityLevel": map[string]any{
							"type": "string",
							"enum": stringEnum(
								QualityCritical,
								QualityPoor,
								QualityAverage,
								QualityGood,
								QualityExcellent,
								QualityPerfect,
							),
							"description": "Overall quality tier proposed for the translation",
						},
						"scores": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"accuracy":    scoreProperty,
								"terminology": scoreProperty,
								"layout":      scoreProperty,
								"grammar":     scoreProperty,
								"formatting":  scoreProperty,
								"tone":        scoreProperty,
							},
							"required": stringEnum(Dimensions...),
						},
						"sceneDescription": map[string]any{
							"type":        "string",
							"description": "What the translated content is and where it is shown",
						},
						"summary": map[string]any{
							"type":        "string",
							"description": "One paragraph verdict",
						},
					},
					"required": []string{"qualityLevel", "scores"},
				},
				"issues": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"id": map[string]any{"type": "string"},
							"severity": map[string]any{
								"type": "string",
								"enum": stringEnum(SeverityCritical, SeverityMajor, SeverityMinor),
							},
							"issueCategory": map[string]any{
								"type": "string",
								"enum": stringEnum(Categories...),
							},
							"location":    map[string]any{"type": "string"},
							"sourceText":  map[string]any{"type": "string"},
							"targetText":  map[string]any{"type": "string"},
							"description": map[string]any{"type": "string"},
							"suggestions": map[string]any{
								"type":  "array",
								"items": map[string]any{"type": "string"},
							},
						},
						"required": []string{"severity", "issueCategory"},
					},
				},
				"summary": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"severeCount": map[string]any{"type": "integer", "minimum": 0},
						"majorCount":  map[string]any{"type": "integer", "minimum": 0},
						"minorCount":  map[string]any{"type": "integer", "minimum": 0},
						"advice":      map[string]any{"type": "string"},
					},
				},
			},
			"required": []string{"overall", "issues", "summary"},
		},
	},
}
