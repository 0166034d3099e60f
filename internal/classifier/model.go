package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"PageviewLabeler/internal/domain"
	"PageviewLabeler/internal/fileutil"
)

const artifactFormat = 1

var (
	// ErrModelCorrupt is returned when a stored artifact fails validation.
	ErrModelCorrupt = errors.New("model artifact is corrupt")
	// ErrUnsupportedFormat is returned for artifacts written by an incompatible build.
	ErrUnsupportedFormat = errors.New("unsupported model artifact format")
)

type artifact struct {
	Format    int       `json:"format"`
	Version   string    `json:"version"`
	TrainedAt time.Time `json:"trained_at"`
	Params    params    `json:"params"`
}

// params is everything that determines predictions; the version hash covers
// exactly these fields.
type params struct {
	Tokenizer      TokenizerOptions `json:"tokenizer"`
	Alpha          float64          `json:"alpha"`
	Classes        []domain.Label   `json:"classes"`
	ClassCounts    []int            `json:"class_counts"`
	Vocabulary     []string         `json:"vocabulary"`
	ClassLogPrior  []float64        `json:"class_log_prior"`
	FeatureLogProb [][]float64      `json:"feature_log_prob"`
}

func (m *Model) params() params {
	return params{
		Tokenizer:      m.tokenizer.Options(),
		Alpha:          m.alpha,
		Classes:        m.classes,
		ClassCounts:    m.classCounts,
		Vocabulary:     m.vocab.terms,
		ClassLogPrior:  m.classLogPrior,
		FeatureLogProb: m.featureLogProb,
	}
}

func (m *Model) computeVersion() (string, error) {
	raw, err := json.Marshal(m.params())
	if err != nil {
		return "", fmt.Errorf("marshal model params: %w", err)
	}
	return fileutil.SHA256Hex(raw)[:16], nil
}

// Encode writes the model artifact as JSON.
func (m *Model) Encode(w io.Writer, trainedAt time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(artifact{
		Format:    artifactFormat,
		Version:   m.version,
		TrainedAt: trainedAt.UTC(),
		Params:    m.params(),
	}); err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	return nil
}

// Save atomically writes the model artifact to path.
func Save(path string, m *Model) error {
	return fileutil.WriteAtomic(path, func(w io.Writer) error {
		return m.Encode(w, time.Now())
	})
}

// Decode reads a model artifact and verifies its version hash.
func Decode(r io.Reader) (*Model, error) {
	var a artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelCorrupt, err)
	}
	if a.Format != artifactFormat {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFormat, a.Format)
	}

	p := a.Params
	if len(p.Classes) == 0 || len(p.ClassLogPrior) != len(p.Classes) ||
		len(p.FeatureLogProb) != len(p.Classes) || len(p.ClassCounts) != len(p.Classes) {
		return nil, fmt.Errorf("%w: class dimensions disagree", ErrModelCorrupt)
	}
	for c, row := range p.FeatureLogProb {
		if len(row) != len(p.Vocabulary) {
			return nil, fmt.Errorf("%w: class %d has %d features, vocabulary has %d",
				ErrModelCorrupt, c, len(row), len(p.Vocabulary))
		}
	}
	for _, label := range p.Classes {
		if !label.IsClass() {
			return nil, fmt.Errorf("%w: %s is not a classifier label", ErrModelCorrupt, label)
		}
	}

	m := &Model{
		tokenizer:      NewTokenizer(p.Tokenizer),
		vocab:          newVocabulary(p.Vocabulary),
		classes:        p.Classes,
		alpha:          p.Alpha,
		classCounts:    p.ClassCounts,
		classLogPrior:  p.ClassLogPrior,
		featureLogProb: p.FeatureLogProb,
	}
	version, err := m.computeVersion()
	if err != nil {
		return nil, err
	}
	if version != a.Version {
		return nil, fmt.Errorf("%w: version %s does not match parameters (%s)", ErrModelCorrupt, a.Version, version)
	}
	m.version = version
	return m, nil
}

// Load reads the model artifact at path.
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}
	defer f.Close()

	m, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}
	return m, nil
}
