package classifier

import (
	"errors"
	"fmt"
	"math"

	"PageviewLabeler/internal/domain"
	"PageviewLabeler/internal/textutil"
)

const defaultAlpha = 1.0

var (
	// ErrInvalidExample rejects training examples with empty text or a non-class label.
	ErrInvalidExample = errors.New("invalid training example")
	// ErrMissingClass is returned when the corpus lacks examples of a class.
	ErrMissingClass = errors.New("training corpus is missing a class")
	// ErrInvalidOptions is returned for unusable training options.
	ErrInvalidOptions = errors.New("invalid training options")
)

// Example is one hand-labeled training snippet.
type Example struct {
	Text  string
	Label domain.Label
}

// Options configures training.
type Options struct {
	// Alpha is the additive smoothing parameter; 1.0 is Laplace smoothing.
	Alpha     float64
	Tokenizer TokenizerOptions
}

// DefaultOptions uses Laplace smoothing and keeps stop words.
func DefaultOptions() Options {
	return Options{Alpha: defaultAlpha}
}

// Model is a trained multinomial Naive Bayes classifier.
type Model struct {
	tokenizer      Tokenizer
	vocab          Vocabulary
	classes        []domain.Label
	alpha          float64
	classCounts    []int
	classLogPrior  []float64
	featureLogProb [][]float64
	version        string
}

// Train fits the vocabulary and the class-conditional term distributions.
func Train(examples []Example, opts Options) (*Model, error) {
	if opts.Alpha <= 0 || math.IsNaN(opts.Alpha) || math.IsInf(opts.Alpha, 0) {
		return nil, fmt.Errorf("%w: alpha must be positive, got %v", ErrInvalidOptions, opts.Alpha)
	}

	tokenizer := NewTokenizer(opts.Tokenizer)
	classes := domain.ClassLabels()
	classIndex := make(map[domain.Label]int, len(classes))
	for i, c := range classes {
		classIndex[c] = i
	}

	docs := make([][]string, len(examples))
	targets := make([]int, len(examples))
	for i, ex := range examples {
		ci, ok := classIndex[ex.Label]
		if !ok {
			return nil, fmt.Errorf("%w: example %d has label %s", ErrInvalidExample, i, ex.Label)
		}
		if textutil.SanitizeText(ex.Text) == "" {
			return nil, fmt.Errorf("%w: example %d has empty text", ErrInvalidExample, i)
		}
		docs[i] = tokenizer.Tokens(ex.Text)
		targets[i] = ci
	}

	vocab := FitVocabulary(docs)
	classCounts := make([]int, len(classes))
	featureCounts := make([][]float64, len(classes))
	for c := range featureCounts {
		featureCounts[c] = make([]float64, vocab.Size())
	}
	for i, doc := range docs {
		c := targets[i]
		classCounts[c]++
		for _, fc := range vocab.Counts(doc) {
			featureCounts[c][fc.Feature] += float64(fc.Count)
		}
	}
	for c, n := range classCounts {
		if n == 0 {
			return nil, fmt.Errorf("%w: no %s examples", ErrMissingClass, classes[c])
		}
	}

	m := &Model{
		tokenizer:   tokenizer,
		vocab:       vocab,
		classes:     classes,
		alpha:       opts.Alpha,
		classCounts: classCounts,
	}
	m.classLogPrior = make([]float64, len(classes))
	m.featureLogProb = make([][]float64, len(classes))
	total := float64(len(examples))
	nFeatures := float64(vocab.Size())
	for c := range classes {
		m.classLogPrior[c] = math.Log(float64(classCounts[c]) / total)

		var classTotal float64
		for _, n := range featureCounts[c] {
			classTotal += n
		}
		denom := math.Log(classTotal + opts.Alpha*nFeatures)
		probs := make([]float64, vocab.Size())
		for f, n := range featureCounts[c] {
			probs[f] = math.Log(n+opts.Alpha) - denom
		}
		m.featureLogProb[c] = probs
	}

	version, err := m.computeVersion()
	if err != nil {
		return nil, err
	}
	m.version = version
	return m, nil
}

// Classify returns the label with the highest posterior. Ties go to the
// earlier class in domain.ClassLabels order. Unknown tokens carry no signal
// and empty text falls back to the priors.
func (m *Model) Classify(text string) domain.Label {
	scores := m.jointLogLikelihood(text)
	best := 0
	for c := 1; c < len(scores); c++ {
		if scores[c] > scores[best] {
			best = c
		}
	}
	return m.classes[best]
}

// Posteriors returns the normalized class probabilities for text.
func (m *Model) Posteriors(text string) map[domain.Label]float64 {
	scores := m.jointLogLikelihood(text)
	maxScore := math.Inf(-1)
	for _, s := range scores {
		maxScore = math.Max(maxScore, s)
	}
	var sum float64
	exp := make([]float64, len(scores))
	for c, s := range scores {
		exp[c] = math.Exp(s - maxScore)
		sum += exp[c]
	}
	out := make(map[domain.Label]float64, len(scores))
	for c, e := range exp {
		out[m.classes[c]] = e / sum
	}
	return out
}

func (m *Model) jointLogLikelihood(text string) []float64 {
	counts := m.vocab.Counts(m.tokenizer.Tokens(text))
	scores := make([]float64, len(m.classes))
	for c := range m.classes {
		score := m.classLogPrior[c]
		for _, fc := range counts {
			score += float64(fc.Count) * m.featureLogProb[c][fc.Feature]
		}
		scores[c] = score
	}
	return scores
}

// Version identifies the trained parameters.
func (m *Model) Version() string {
	return m.version
}

// VocabularySize returns the number of frozen features.
func (m *Model) VocabularySize() int {
	return m.vocab.Size()
}

// ClassCounts returns the number of training examples per class.
func (m *Model) ClassCounts() map[domain.Label]int {
	out := make(map[domain.Label]int, len(m.classes))
	for c, label := range m.classes {
		out[label] = m.classCounts[c]
	}
	return out
}
