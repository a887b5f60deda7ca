package prompts

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"text/template"
)

// variablePattern matches field references like {{.Source}} or {{ .Item.Name }}.
var variablePattern = regexp.MustCompile(`\{\{\s*\.([a-zA-Z_][a-zA-Z0-9_.]*)\s*\}\}`)

// ExtractVariables returns the sorted, de-duplicated field names a template references.
func ExtractVariables(text string) []string {
	seen := make(map[string]bool)
	var vars []string
	for _, match := range variablePattern.FindAllStringSubmatch(text, -1) {
		if name := match[1]; !seen[name] {
			seen[name] = true
			vars = append(vars, name)
		}
	}
	sort.Strings(vars)
	return vars
}

// HashText returns the hex SHA256 of text.
func HashText(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// Render executes the prompt as a Go template against data.
// Missing fields are an error so a broken override fails loudly.
func (p *ResolvedPrompt) Render(data any) (string, error) {
	tmpl, err := template.New(p.Key).Option("missingkey=error").Parse(p.Text)
	if err != nil {
		return "", fmt.Errorf("failed to parse prompt %s: %w", p.Key, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %s: %w", p.Key, err)
	}
	return buf.String(), nil
}
