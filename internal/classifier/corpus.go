package classifier

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"PageviewLabeler/internal/domain"
)

const (
	corpusTextColumn  = "text"
	corpusLabelColumn = "label"
)

// ReadCorpus parses a CSV corpus with "text" and "label" columns in any order.
func ReadCorpus(r io.Reader) ([]Example, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: corpus is empty", ErrInvalidExample)
		}
		return nil, fmt.Errorf("read corpus header: %w", err)
	}
	textCol, labelCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case corpusTextColumn:
			textCol = i
		case corpusLabelColumn:
			labelCol = i
		}
	}
	if textCol < 0 || labelCol < 0 {
		return nil, fmt.Errorf("%w: corpus header must contain %q and %q", ErrInvalidExample, corpusTextColumn, corpusLabelColumn)
	}

	var examples []Example
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read corpus: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if textCol >= len(record) || labelCol >= len(record) {
			return nil, fmt.Errorf("%w: line %d has %d fields", ErrInvalidExample, line, len(record))
		}
		label, err := domain.ParseLabel(record[labelCol])
		if err != nil || !label.IsClass() {
			return nil, fmt.Errorf("%w: line %d has label %q", ErrInvalidExample, line, record[labelCol])
		}
		text := strings.TrimSpace(record[textCol])
		if text == "" {
			return nil, fmt.Errorf("%w: line %d has empty text", ErrInvalidExample, line)
		}
		examples = append(examples, Example{Text: text, Label: label})
	}
	return examples, nil
}

// ReadCorpusFile opens and parses the corpus at path.
func ReadCorpusFile(path string) ([]Example, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()
	return ReadCorpus(f)
}

// WriteCorpus writes examples as a "text,label" CSV.
func WriteCorpus(w io.Writer, examples []Example) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{corpusTextColumn, corpusLabelColumn}); err != nil {
		return fmt.Errorf("write corpus header: %w", err)
	}
	for _, ex := range examples {
		if err := writer.Write([]string{ex.Text, ex.Label.String()}); err != nil {
			return fmt.Errorf("write corpus row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
