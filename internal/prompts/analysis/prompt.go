// Package analysis holds the prompts sent to translation quality analyzers.
package analysis

import (
	_ "embed"
	"log/slog"

	"github.com/jackzampolin/lqa/internal/prompts"
)

const (
	SystemKey = "analysis.system"
	UserKey   = "analysis.user"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed user.tmpl
var userPromptTmpl string

// Input is the data rendered into the user prompt.
type Input struct {
	Name   string
	Locale string
	Source string
	Target string
}

// Messages are the rendered prompts for one request.
type Messages struct {
	System string
	User   string
	// Hash identifies the system/user prompt texts that were rendered.
	Hash string
}

var defaults = NewResolver("", nil)

// Register adds the embedded analysis prompts to r.
func Register(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemKey,
		Text:        systemPrompt,
		Description: "Reviewer instructions and report format",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserKey,
		Text:        userPromptTmpl,
		Description: "One source/translation pair",
	})
}

// NewResolver returns a resolver holding the analysis prompts, with
// overrides read from dir when it is set.
func NewResolver(dir string, logger *slog.Logger) *prompts.Resolver {
	r := prompts.NewResolver(dir, logger)
	Register(r)
	return r
}

// Build renders both prompts for in. A nil resolver uses the embedded defaults.
func Build(r *prompts.Resolver, in Input) (Messages, error) {
	if r == nil {
		r = defaults
	}
	sys, err := r.Resolve(SystemKey)
	if err != nil {
		return Messages{}, err
	}
	user, err := r.Resolve(UserKey)
	if err != nil {
		return Messages{}, err
	}

	var m Messages
	if m.System, err = sys.Render(in); err != nil {
		return Messages{}, err
	}
	if m.User, err = user.Render(in); err != nil {
		return Messages{}, err
	}
	m.Hash = prompts.HashText(sys.Hash + user.Hash)
	return m, nil
}

// SystemPrompt returns the embedded reviewer instructions.
func SystemPrompt() string {
	return systemPrompt
}

// UserPrompt renders the embedded user prompt for one item.
func UserPrompt(in Input) (string, error) {
	m, err := Build(nil, in)
	if err != nil {
		return "", err
	}
	return m.User, nil
}
