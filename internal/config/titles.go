package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"PageviewLabeler/internal/domain"
)

// CorpusTitles lists the seed articles of each classifier class.
type CorpusTitles struct {
	Political    []string `yaml:"political"`
	NonPolitical []string `yaml:"non-political"`
}

// LoadTitles reads the corpus titles YAML file.
func LoadTitles(path string) (CorpusTitles, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return CorpusTitles{}, fmt.Errorf("titles: read %s: %w", path, err)
	}
	var titles CorpusTitles
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&titles); err != nil {
		return CorpusTitles{}, fmt.Errorf("titles: parse %s: %w", path, err)
	}
	if len(titles.Political) == 0 || len(titles.NonPolitical) == 0 {
		return CorpusTitles{}, fmt.Errorf("%w: titles file %s needs both political and non-political entries", ErrInvalidConfig, path)
	}
	return titles, nil
}

// Entries flattens the lists in class order, dropping blanks and repeats.
func (t CorpusTitles) Entries() []domain.CorpusTitle {
	seen := make(map[string]struct{})
	var out []domain.CorpusTitle
	add := func(titles []string, label domain.Label) {
		for _, title := range titles {
			title = strings.TrimSpace(title)
			if title == "" {
				continue
			}
			if _, dup := seen[title]; dup {
				continue
			}
			seen[title] = struct{}{}
			out = append(out, domain.CorpusTitle{Title: title, Label: label})
		}
	}
	add(t.NonPolitical, domain.LabelNonPolitical)
	add(t.Political, domain.LabelPolitical)
	return out
}
