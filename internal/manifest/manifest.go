// Package manifest loads batch inputs and persists batch results.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/jackzampolin/lqa/internal/batch"
)

// ErrNoItems is returned for a manifest without entries.
var ErrNoItems = errors.New("manifest has no items")

// Manifest lists the source/translation pairs of one batch.
// JSON manifests are accepted as well, since YAML is a superset.
type Manifest struct {
	// Locale applies to entries that do not set their own.
	Locale string  `yaml:"locale" json:"locale"`
	Items  []Entry `yaml:"items" json:"items"`
}

// Entry is one pair. Text may be given inline or as a file path
// relative to the manifest.
type Entry struct {
	ID         string       `yaml:"id" json:"id"`
	Name       string       `yaml:"name" json:"name"`
	Locale     string       `yaml:"locale" json:"locale"`
	Source     string       `yaml:"source" json:"source"`
	SourceFile string       `yaml:"source_file" json:"source_file"`
	Target     string       `yaml:"target" json:"target"`
	TargetFile string       `yaml:"target_file" json:"target_file"`
	Status     batch.Status `yaml:"status" json:"status"`
}

// Load reads a manifest and returns its items in file order.
// Entries without an ID get one derived from their content.
func Load(path string) ([]*batch.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	if len(m.Items) == 0 {
		return nil, ErrNoItems
	}

	base := filepath.Dir(path)
	seen := make(map[string]bool, len(m.Items))
	items := make([]*batch.Item, 0, len(m.Items))
	for i, e := range m.Items {
		it, err := e.toItem(base, m.Locale)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
		if seen[it.ID] {
			return nil, fmt.Errorf("item %d: duplicate id %q", i+1, it.ID)
		}
		seen[it.ID] = true
		items = append(items, it)
	}
	return items, nil
}

func (e Entry) toItem(base, defaultLocale string) (*batch.Item, error) {
	source, err := readText(base, e.Source, e.SourceFile)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	if source == "" {
		return nil, errors.New("source text is empty")
	}
	target, err := readText(base, e.Target, e.TargetFile)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}

	id := e.ID
	if id == "" {
		id = contentID(e.Name, locale, source, target)
	}
	if id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return nil, fmt.Errorf("id %q cannot be used as a file name", id)
	}
	name := e.Name
	if name == "" && e.TargetFile != "" {
		name = filepath.Base(e.TargetFile)
	}
	if name == "" {
		name = id
	}
	locale := e.Locale
	if locale == "" {
		locale = defaultLocale
	}

	status := e.Status
	switch status {
	case "":
		status = batch.StatusPending
	case batch.StatusPending, batch.StatusCompleted, batch.StatusFailed:
	case batch.StatusAnalyzing:
		// An interrupted previous run; the item never finished.
		status = batch.StatusPending
	default:
		return nil, fmt.Errorf("unknown status %q", e.Status)
	}

	return &batch.Item{
		ID:     id,
		Name:   name,
		Locale: locale,
		Source: source,
		Target: target,
		Status: status,
	}, nil
}

// contentID derives an ID from an entry's content, so the same entry gets
// the same ID on every load and a resumed run can match it.
func contentID(name, locale, source, target string) string {
	key := strings.Join([]string{name, locale, source, target}, "\x00")
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

func readText(base, inline, file string) (string, error) {
	if inline != "" && file != "" {
		return "", errors.New("set either inline text or a file, not both")
	}
	if file == "" {
		return inline, nil
	}
	if !filepath.IsAbs(file) {
		file = filepath.Join(base, file)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
