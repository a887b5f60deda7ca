package prompts

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Resolver resolves prompts by key.
// Resolution order: <dir>/<key>.tmpl > embedded default.
type Resolver struct {
	mu       sync.RWMutex
	embedded map[string]EmbeddedPrompt
	dir      string
	logger   *slog.Logger
}

// NewResolver creates a resolver reading overrides from dir.
// An empty dir disables overrides.
func NewResolver(dir string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		embedded: make(map[string]EmbeddedPrompt),
		dir:      dir,
		logger:   logger,
	}
}

// Register adds an embedded default, filling in its hash and variables.
func (r *Resolver) Register(p EmbeddedPrompt) {
	if p.Hash == "" {
		p.Hash = HashText(p.Text)
	}
	if p.Variables == nil {
		p.Variables = ExtractVariables(p.Text)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.embedded[p.Key] = p
}

// Dir returns the override directory.
func (r *Resolver) Dir() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dir
}

// SetDir changes the override directory. Subsequent resolutions use it.
func (r *Resolver) SetDir(dir string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dir != dir {
		r.logger.Info("prompt override directory changed", "from", r.dir, "to", dir)
		r.dir = dir
	}
}

// Resolve returns the override for key if one exists, otherwise the
// embedded default. Overrides are read on every call so edits apply to
// the next request. An unreadable override falls back to the default.
func (r *Resolver) Resolve(key string) (*ResolvedPrompt, error) {
	r.mu.RLock()
	embedded, ok := r.embedded[key]
	dir := r.dir
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("prompt not found: %s", key)
	}

	if dir != "" {
		path := filepath.Join(dir, key+".tmpl")
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			text := string(data)
			return &ResolvedPrompt{
				Key:        key,
				Text:       text,
				Variables:  ExtractVariables(text),
				IsOverride: true,
				Path:       path,
				Hash:       HashText(text),
			}, nil
		case !errors.Is(err, fs.ErrNotExist):
			r.logger.Warn("failed to read prompt override", "key", key, "path", path, "error", err)
		}
	}

	return &ResolvedPrompt{
		Key:       key,
		Text:      embedded.Text,
		Variables: embedded.Variables,
		Hash:      embedded.Hash,
	}, nil
}

// GetEmbedded returns the embedded default for a key.
func (r *Resolver) GetEmbedded(key string) (EmbeddedPrompt, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.embedded[key]
	return p, ok
}

// Keys returns registered prompt keys in sorted order.
func (r *Resolver) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.embedded))
	for k := range r.embedded {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ResolveAll resolves every registered key.
func (r *Resolver) ResolveAll() ([]*ResolvedPrompt, error) {
	keys := r.Keys()
	out := make([]*ResolvedPrompt, 0, len(keys))
	for _, k := range keys {
		p, err := r.Resolve(k)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
