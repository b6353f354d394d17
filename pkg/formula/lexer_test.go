package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize_Classification(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Kind
	}{
		{
			name:  "bracketed reference",
			input: "[Total Sales] + 1",
			want:  []Kind{KindBracketedRef, KindOperator, KindNumber},
		},
		{
			name:  "qualified reference",
			input: "'Sales'[Amount] * 2",
			want:  []Kind{KindQualifiedRef, KindOperator, KindNumber},
		},
		{
			name:  "unquoted qualified reference",
			input: "Sales[Amount]",
			want:  []Kind{KindQualifiedRef},
		},
		{
			name:  "standalone table reference",
			input: "COUNTROWS('Sales')",
			want:  []Kind{KindIdentifier, KindOperator, KindTableRef, KindOperator},
		},
		{
			name:  "string literal is not a reference",
			input: `"[M1]" & [M1]`,
			want:  []Kind{KindString, KindOperator, KindBracketedRef},
		},
		{
			name:  "line comment",
			input: "[M1] // uses [M2]",
			want:  []Kind{KindBracketedRef, KindComment},
		},
		{
			name:  "sql style line comment",
			input: "1 -- [M2]",
			want:  []Kind{KindNumber, KindComment},
		},
		{
			name:  "block comment",
			input: "/* [M2] */ [M1]",
			want:  []Kind{KindComment, KindBracketedRef},
		},
		{
			name:  "function call with identifiers",
			input: "SUM(Sales[Amount])",
			want:  []Kind{KindIdentifier, KindOperator, KindQualifiedRef, KindOperator},
		},
		{
			name:  "empty input",
			input: "   ",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := Tokenize(tt.input)
			require.NoError(t, err)

			var got []Kind
			for _, tok := range toks {
				got = append(got, tok.Kind)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTokenize_Spans(t *testing.T) {
	input := `"[M1]" & [M1]`
	toks, err := Tokenize(input)
	require.NoError(t, err)
	require.Len(t, toks, 3)

	// The string literal covers the first occurrence, brackets included.
	assert.Equal(t, Span{Start: 0, End: 6}, toks[0].Span)
	assert.Equal(t, `"[M1]"`, toks[0].Text)

	// The real reference covers the second occurrence only.
	ref := toks[2]
	assert.Equal(t, KindBracketedRef, ref.Kind)
	assert.Equal(t, "[M1]", input[ref.Span.Start:ref.Span.End])
	assert.Equal(t, "M1", ref.Name)
	assert.Equal(t, ref.Span, ref.NameSpan)
}

func TestTokenize_QualifiedRefSubSpans(t *testing.T) {
	input := "1 + 'Net Sales'[Amount]"
	toks, err := Tokenize(input)
	require.NoError(t, err)
	require.Len(t, toks, 3)

	ref := toks[2]
	require.Equal(t, KindQualifiedRef, ref.Kind)
	assert.Equal(t, "Net Sales", ref.Table)
	assert.Equal(t, "Amount", ref.Name)
	assert.Equal(t, "'Net Sales'", input[ref.TableSpan.Start:ref.TableSpan.End])
	assert.Equal(t, "[Amount]", input[ref.NameSpan.Start:ref.NameSpan.End])
	assert.Equal(t, "'Net Sales'[Amount]", ref.Text)
}

func TestTokenize_Escapes(t *testing.T) {
	toks, err := Tokenize("'O''Brien'[a]]b]")
	require.NoError(t, err)
	require.Len(t, toks, 1)
	assert.Equal(t, "O'Brien", toks[0].Table)
	assert.Equal(t, "a]b", toks[0].Name)
}

func TestTokenize_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unterminated string", `"abc`},
		{"unterminated bracket", "[M1"},
		{"unterminated quote", "'Sales"},
		{"unterminated block comment", "/* hmm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.input)
			require.Error(t, err)
			var lexErr *LexError
			assert.ErrorAs(t, err, &lexErr)
		})
	}
}
