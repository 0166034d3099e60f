package classifier

import (
	"fmt"
	"math/rand/v2"

	"PageviewLabeler/internal/domain"
)

// DefaultTestFraction and DefaultSeed define the default evaluation split.
const (
	DefaultTestFraction = 0.2
	DefaultSeed         = 42
)

// ClassMetrics holds per-class precision, recall and F1.
type ClassMetrics struct {
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Metrics is the held-out evaluation report of a model.
type Metrics struct {
	Samples    int
	Accuracy   float64
	MacroF1    float64
	WeightedF1 float64
	PerClass   map[domain.Label]ClassMetrics
	// Confusion is indexed [actual][predicted].
	Confusion map[domain.Label]map[domain.Label]int
}

// Split shuffles examples with a seeded generator and holds out testFraction
// of them. The same input and seed always produce the same split.
func Split(examples []Example, testFraction float64, seed uint64) (train, test []Example, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("%w: test fraction must be in (0,1), got %v", ErrInvalidOptions, testFraction)
	}
	nTest := int(float64(len(examples))*testFraction + 0.5)
	if nTest == 0 || nTest == len(examples) {
		return nil, nil, fmt.Errorf("%w: %d examples cannot be split at %v", ErrInvalidOptions, len(examples), testFraction)
	}

	order := make([]int, len(examples))
	for i := range order {
		order[i] = i
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	test = make([]Example, 0, nTest)
	train = make([]Example, 0, len(examples)-nTest)
	for i, idx := range order {
		if i < nTest {
			test = append(test, examples[idx])
		} else {
			train = append(train, examples[idx])
		}
	}
	return train, test, nil
}

// Evaluate scores model against held-out examples.
func Evaluate(model *Model, test []Example) Metrics {
	classes := domain.ClassLabels()
	confusion := make(map[domain.Label]map[domain.Label]int, len(classes))
	for _, actual := range classes {
		confusion[actual] = make(map[domain.Label]int, len(classes))
	}

	correct := 0
	for _, ex := range test {
		predicted := model.Classify(ex.Text)
		if predicted == ex.Label {
			correct++
		}
		if row, ok := confusion[ex.Label]; ok {
			row[predicted]++
		}
	}

	m := Metrics{
		Samples:   len(test),
		PerClass:  make(map[domain.Label]ClassMetrics, len(classes)),
		Confusion: confusion,
	}
	if len(test) > 0 {
		m.Accuracy = float64(correct) / float64(len(test))
	}

	var supportTotal int
	for _, c := range classes {
		tp := confusion[c][c]
		var fp, fn int
		for _, other := range classes {
			if other == c {
				continue
			}
			fp += confusion[other][c]
			fn += confusion[c][other]
		}
		cm := ClassMetrics{
			Precision: ratio(tp, tp+fp),
			Recall:    ratio(tp, tp+fn),
			Support:   tp + fn,
		}
		if cm.Precision+cm.Recall > 0 {
			cm.F1 = 2 * cm.Precision * cm.Recall / (cm.Precision + cm.Recall)
		}
		m.PerClass[c] = cm
		m.MacroF1 += cm.F1 / float64(len(classes))
		m.WeightedF1 += cm.F1 * float64(cm.Support)
		supportTotal += cm.Support
	}
	if supportTotal > 0 {
		m.WeightedF1 /= float64(supportTotal)
	}
	return m
}

// TrainAndEvaluate splits the corpus, reports held-out metrics for a model
// trained on the training split, and returns the final model fit on the
// full corpus.
func TrainAndEvaluate(examples []Example, opts Options, testFraction float64, seed uint64) (*Model, Metrics, error) {
	train, test, err := Split(examples, testFraction, seed)
	if err != nil {
		return nil, Metrics{}, err
	}
	heldOut, err := Train(train, opts)
	if err != nil {
		return nil, Metrics{}, fmt.Errorf("train on split: %w", err)
	}
	metrics := Evaluate(heldOut, test)

	final, err := Train(examples, opts)
	if err != nil {
		return nil, Metrics{}, fmt.Errorf("train on full corpus: %w", err)
	}
	return final, metrics, nil
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
