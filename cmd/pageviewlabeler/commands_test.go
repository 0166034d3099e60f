package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	prev := stderr
	stderr = io.Discard
	t.Cleanup(func() { stderr = prev })

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	corpus, err := filepath.Abs(filepath.Join("..", "..", "internal", "classifier", "testdata", "corpus.csv"))
	require.NoError(t, err)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"logging:\n  level: error\n"+
			"model:\n  path: "+filepath.Join(dir, "model.json")+"\n"+
			"training:\n  corpus: "+corpus+"\n"+
			"pipeline:\n  output: "+filepath.Join(dir, "daily_label_summary.csv")+"\n"+
			"cache:\n  driver: none\n",
	), 0o644))
	return path, dir
}

func TestRootRegistersCommands(t *testing.T) {
	cmd := newRootCommand()
	names := make([]string, 0)
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"run", "train", "corpus", "classify", "summarize", "history"} {
		require.Contains(t, names, want)
	}
}

func TestTrainThenClassify(t *testing.T) {
	cfgPath, dir := writeConfig(t)

	out, err := execute(t, "train", "-c", cfgPath)
	require.NoError(t, err)
	require.Contains(t, out, "Held-out evaluation on")
	require.Contains(t, out, "saved to "+filepath.Join(dir, "model.json"))
	require.FileExists(t, filepath.Join(dir, "model.json"))

	out, err = execute(t, "classify", "-c", cfgPath, "President of Russia")
	require.NoError(t, err)
	require.Contains(t, out, "| President of Russia | political ")
}

func TestClassifyWithoutModel(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	_, err := execute(t, "classify", "-c", cfgPath, "anything")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestSummarizeAggregate(t *testing.T) {
	cfgPath, dir := writeConfig(t)
	input := filepath.Join(dir, "daily_label_summary.csv")
	require.NoError(t, os.WriteFile(input, []byte(
		"date,country_code,label,views\n"+
			"2023-10-31,US,political,10\n"+
			"2023-11-06,US,No QID,1230\n"+
			"2023-11-06,US,political,50000\n"+
			"2023-11-07,US,non-political,800\n",
	), 0o644))

	out, err := execute(t, "summarize", "-c", cfgPath, "--from", "2023-11-01")
	require.NoError(t, err)
	require.Contains(t, out, "3 rows from 2023-11-06 to 2023-11-07")
	require.Contains(t, out, "2023-11")
	require.Contains(t, out, "50000")
	require.NotContains(t, out, "2023-10")

	_, err = execute(t, "summarize", "-c", cfgPath, "--from", "2023-12-01", "--to", "2023-11-01")
	require.Error(t, err)
}

func TestHistoryNeedsSQLite(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	_, err := execute(t, "history", "-c", cfgPath)
	require.Error(t, err)
}

func TestRenderTablePlain(t *testing.T) {
	var buf bytes.Buffer
	got := renderTable(&buf, []string{"Country", "Views"}, [][]string{{"US", "42"}, {"GB"}},
		[]columnAlignment{alignLeft, alignRight})
	require.Contains(t, got, "US")
	require.Contains(t, got, "42")
	require.Len(t, strings.Split(got, "\n"), 6)
	require.Empty(t, renderTable(&buf, nil, nil, nil))
}
