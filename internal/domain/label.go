package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownLabel is returned when a string does not name a known label.
var ErrUnknownLabel = errors.New("unknown label")

// Label is the classification outcome assigned to an entity.
type Label uint8

// The zero value is deliberately invalid so that an unset label never
// masquerades as a real outcome.
const (
	labelInvalid Label = iota
	LabelNonPolitical
	LabelPolitical
	LabelNoQID
)

const (
	nonPoliticalText = "non-political"
	politicalText    = "political"
	noQIDText        = "No QID"
)

// Labels lists every valid label in output order.
func Labels() []Label {
	return []Label{LabelNoQID, LabelNonPolitical, LabelPolitical}
}

// ClassLabels lists the labels a text classifier may produce, in tie-break order.
func ClassLabels() []Label {
	return []Label{LabelNonPolitical, LabelPolitical}
}

// ParseLabel converts the wire representation back into a Label.
func ParseLabel(value string) (Label, error) {
	switch strings.TrimSpace(value) {
	case nonPoliticalText:
		return LabelNonPolitical, nil
	case politicalText:
		return LabelPolitical, nil
	case noQIDText:
		return LabelNoQID, nil
	default:
		return labelInvalid, fmt.Errorf("%w: %q", ErrUnknownLabel, value)
	}
}

// String returns the exact vocabulary the dashboard expects.
func (l Label) String() string {
	switch l {
	case LabelNonPolitical:
		return nonPoliticalText
	case LabelPolitical:
		return politicalText
	case LabelNoQID:
		return noQIDText
	default:
		return "invalid"
	}
}

// Valid reports whether l is one of the closed label set.
func (l Label) Valid() bool {
	return l >= LabelNonPolitical && l <= LabelNoQID
}

// IsClass reports whether l can be produced by the text classifier.
func (l Label) IsClass() bool {
	return l == LabelNonPolitical || l == LabelPolitical
}

// MarshalText implements encoding.TextMarshaler.
func (l Label) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLabel, l)
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Label) UnmarshalText(text []byte) error {
	parsed, err := ParseLabel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
