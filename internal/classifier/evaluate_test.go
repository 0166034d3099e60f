package classifier

import (
	"testing"

	"github.com/stretchr/testify/require"

	"PageviewLabeler/internal/domain"
)

func TestSplitIsReproducible(t *testing.T) {
	examples := loadTestCorpus(t)

	train1, test1, err := Split(examples, DefaultTestFraction, DefaultSeed)
	require.NoError(t, err)
	train2, test2, err := Split(examples, DefaultTestFraction, DefaultSeed)
	require.NoError(t, err)

	require.Equal(t, test1, test2)
	require.Equal(t, train1, train2)
	require.Len(t, test1, 9)
	require.Len(t, train1, 35)

	_, test3, err := Split(examples, DefaultTestFraction, DefaultSeed+1)
	require.NoError(t, err)
	require.NotEqual(t, test1, test3)
}

func TestSplitRejectsBadFraction(t *testing.T) {
	examples := loadTestCorpus(t)
	for _, f := range []float64{0, 1, -0.5, 1.5} {
		_, _, err := Split(examples, f, DefaultSeed)
		require.ErrorIs(t, err, ErrInvalidOptions)
	}
	_, _, err := Split(examples[:1], 0.2, DefaultSeed)
	require.ErrorIs(t, err, ErrInvalidOptions)
}

func TestEvaluateMetrics(t *testing.T) {
	m, err := Train([]Example{
		{Text: "election parliament minister", Label: domain.LabelPolitical},
		{Text: "football film singer", Label: domain.LabelNonPolitical},
	}, DefaultOptions())
	require.NoError(t, err)

	metrics := Evaluate(m, []Example{
		{Text: "election", Label: domain.LabelPolitical},
		{Text: "minister", Label: domain.LabelPolitical},
		{Text: "film", Label: domain.LabelNonPolitical},
		{Text: "parliament", Label: domain.LabelNonPolitical},
	})

	require.Equal(t, 4, metrics.Samples)
	require.InDelta(t, 0.75, metrics.Accuracy, 1e-12)

	pol := metrics.PerClass[domain.LabelPolitical]
	require.InDelta(t, 2.0/3.0, pol.Precision, 1e-12)
	require.InDelta(t, 1.0, pol.Recall, 1e-12)
	require.InDelta(t, 0.8, pol.F1, 1e-12)
	require.Equal(t, 2, pol.Support)

	non := metrics.PerClass[domain.LabelNonPolitical]
	require.InDelta(t, 1.0, non.Precision, 1e-12)
	require.InDelta(t, 0.5, non.Recall, 1e-12)
	require.InDelta(t, 2.0/3.0, non.F1, 1e-12)

	require.InDelta(t, (0.8+2.0/3.0)/2, metrics.MacroF1, 1e-12)
	require.Equal(t, 1, metrics.Confusion[domain.LabelNonPolitical][domain.LabelPolitical])
}

func TestTrainAndEvaluateIsReproducible(t *testing.T) {
	examples := loadTestCorpus(t)

	m1, metrics1, err := TrainAndEvaluate(examples, DefaultOptions(), DefaultTestFraction, DefaultSeed)
	require.NoError(t, err)
	m2, metrics2, err := TrainAndEvaluate(examples, DefaultOptions(), DefaultTestFraction, DefaultSeed)
	require.NoError(t, err)

	require.Equal(t, m1.Version(), m2.Version())
	require.InDelta(t, metrics1.Accuracy, metrics2.Accuracy, 1e-12)
	require.InDelta(t, metrics1.MacroF1, metrics2.MacroF1, 1e-12)
	require.Equal(t, metrics1.Confusion, metrics2.Confusion)
	require.Equal(t, 44, m1.ClassCounts()[domain.LabelPolitical]+m1.ClassCounts()[domain.LabelNonPolitical])
}
