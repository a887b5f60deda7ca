// Package prompts resolves prompt templates with file overrides.
//
// Embedded .tmpl files are the defaults. When an override directory is
// configured, a file named <key>.tmpl in it replaces the embedded text
// for that key. Every resolved prompt carries a hash of its text so a
// report can be traced to the exact prompt that produced it.
package prompts

// EmbeddedPrompt is a default prompt compiled into the binary.
type EmbeddedPrompt struct {
	Key         string   // Dotted key, e.g. analysis.system
	Text        string   // Go template text
	Description string   // Human-readable description
	Variables   []string // Template variables referenced by Text
	Hash        string   // SHA256 of Text
}

// ResolvedPrompt is the text that will actually be rendered for a key.
type ResolvedPrompt struct {
	Key        string   `json:"key" yaml:"key"`
	Text       string   `json:"text" yaml:"text"`
	Variables  []string `json:"variables,omitempty" yaml:"variables,omitempty"`
	IsOverride bool     `json:"is_override" yaml:"is_override"`
	Path       string   `json:"path,omitempty" yaml:"path,omitempty"` // override file, if any
	Hash       string   `json:"hash" yaml:"hash"`
}
