package classifier

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokensNormalizeAndFilter(t *testing.T) {
	tok := NewTokenizer(TokenizerOptions{})

	cases := map[string][]string{
		"Émile ZOLA, 1840–1902!":             {"emile", "zola", "1840", "1902"},
		"São Paulo's mayor, a politician":    {"sao", "paulo", "mayor", "politician"},
		"Straße":                              {"strasse"},
		"   ":                                 nil,
		"I a b":                               nil,
		"snake_case stays together":           {"snake_case", "stays", "together"},
		"bad\xffbytes are dropped\x00quietly": {"badbytes", "are", "droppedquietly"},
	}
	for in, want := range cases {
		got := tok.Tokens(in)
		if len(want) == 0 {
			require.Empty(t, got, "input %q", in)
			continue
		}
		require.Equal(t, want, got, "input %q", in)
	}
}

func TestTokensStopWords(t *testing.T) {
	tok := NewTokenizer(TokenizerOptions{StopWords: true})
	require.Equal(t, []string{"president", "russia"}, tok.Tokens("The President of Russia"))
}
