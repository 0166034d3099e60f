package classifier

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"PageviewLabeler/internal/domain"
)

func loadTestCorpus(t *testing.T) []Example {
	t.Helper()
	examples, err := ReadCorpusFile(filepath.Join("testdata", "corpus.csv"))
	require.NoError(t, err)
	require.Len(t, examples, 44)
	return examples
}

func trainTestModel(t *testing.T) *Model {
	t.Helper()
	m, err := Train(loadTestCorpus(t), DefaultOptions())
	require.NoError(t, err)
	return m
}

func TestClassifyKnownDescriptions(t *testing.T) {
	m := trainTestModel(t)

	require.Equal(t, domain.LabelPolitical, m.Classify("Vladimir Putin is the President of Russia"))
	require.Equal(t, domain.LabelPolitical, m.Classify("president of Russia (2000–2008, since 2012)"))
	require.Equal(t, domain.LabelPolitical, m.Classify("British politician, Prime Minister of the United Kingdom"))
	require.Equal(t, domain.LabelNonPolitical, m.Classify("American singer and songwriter"))
	require.Equal(t, domain.LabelNonPolitical, m.Classify("2023 film directed by Christopher Nolan"))
}

func TestClassifyIsDeterministic(t *testing.T) {
	m := trainTestModel(t)
	again := trainTestModel(t)

	require.Equal(t, m.Version(), again.Version())
	for _, text := range []string{"Indian politician", "Australian footballer", "", "zzqx"} {
		first := m.Classify(text)
		require.Equal(t, first, m.Classify(text))
		require.Equal(t, first, again.Classify(text))
	}
}

func TestClassifyEmptyTextUsesPriors(t *testing.T) {
	examples := loadTestCorpus(t)

	// Balanced corpus: equal priors tie and the first class wins.
	m, err := Train(examples, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, domain.LabelNonPolitical, m.Classify(""))
	require.Equal(t, domain.LabelNonPolitical, m.Classify(" \t\n"))
	require.Equal(t, domain.LabelNonPolitical, m.Classify("qqqzzz xxyyzz"))

	extra := append([]Example{}, examples...)
	extra = append(extra,
		Example{Text: "Mayor of a city council", Label: domain.LabelPolitical},
		Example{Text: "Member of the Senate", Label: domain.LabelPolitical},
	)
	m, err = Train(extra, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, domain.LabelPolitical, m.Classify(""))
	require.Equal(t, domain.LabelPolitical, m.Classify("qqqzzz"))
}

func TestClassifyTieBreaksToFirstClass(t *testing.T) {
	m, err := Train([]Example{
		{Text: "alpha beta", Label: domain.LabelPolitical},
		{Text: "alpha beta", Label: domain.LabelNonPolitical},
	}, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, domain.LabelNonPolitical, m.Classify("alpha beta"))

	post := m.Posteriors("alpha beta")
	require.InDelta(t, 0.5, post[domain.LabelPolitical], 1e-12)
	require.InDelta(t, 0.5, post[domain.LabelNonPolitical], 1e-12)
}

func TestTrainRejectsInvalidInput(t *testing.T) {
	_, err := Train([]Example{{Text: "", Label: domain.LabelPolitical}}, DefaultOptions())
	require.ErrorIs(t, err, ErrInvalidExample)

	_, err = Train([]Example{{Text: "some text", Label: domain.LabelNoQID}}, DefaultOptions())
	require.ErrorIs(t, err, ErrInvalidExample)

	_, err = Train([]Example{{Text: "only political", Label: domain.LabelPolitical}}, DefaultOptions())
	require.ErrorIs(t, err, ErrMissingClass)

	_, err = Train(loadTestCorpus(t), Options{Alpha: 0})
	require.ErrorIs(t, err, ErrInvalidOptions)
}

func TestModelRoundTrip(t *testing.T) {
	m := trainTestModel(t)

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, Save(path, m))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, m.Version(), loaded.Version())
	require.Equal(t, m.VocabularySize(), loaded.VocabularySize())

	for _, text := range []string{"Vladimir Putin is the President of Russia", "English footballer", ""} {
		require.Equal(t, m.Classify(text), loaded.Classify(text))
		require.Equal(t, m.Posteriors(text), loaded.Posteriors(text))
	}
}

func TestDecodeRejectsTamperedArtifact(t *testing.T) {
	m := trainTestModel(t)

	var buf bytes.Buffer
	require.NoError(t, m.Encode(&buf, time.Time{}))
	tampered := strings.Replace(buf.String(), `"alpha": 1`, `"alpha": 2`, 1)
	require.NotEqual(t, buf.String(), tampered)

	_, err := Decode(strings.NewReader(tampered))
	require.ErrorIs(t, err, ErrModelCorrupt)

	_, err = Decode(strings.NewReader(`{"format": 99}`))
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}
