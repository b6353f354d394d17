// Package formula tokenizes model formula text into classified spans.
// It is a pure scanner: it recognizes reference syntax, string literals
// and comments, but attaches no meaning to what it finds. Reference
// resolution belongs to the dependency index.
package formula

// Kind classifies a token.
type Kind int

const (
	// KindIdentifier is a bare word (function name, keyword, unquoted table).
	KindIdentifier Kind = iota
	// KindNumber is a numeric literal.
	KindNumber
	// KindString is a double-quoted string literal.
	KindString
	// KindComment is a line or block comment.
	KindComment
	// KindBracketedRef is an unqualified reference: [Total Sales].
	KindBracketedRef
	// KindQualifiedRef is a table-qualified reference: 'Sales'[Amount]
	// or Sales[Amount].
	KindQualifiedRef
	// KindTableRef is a quoted table reference standing alone: 'Sales'.
	KindTableRef
	// KindOperator is a single operator or punctuation character.
	KindOperator
	// KindOther covers anything the scanner does not recognize.
	KindOther
)

// String returns a readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindIdentifier:
		return "identifier"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindComment:
		return "comment"
	case KindBracketedRef:
		return "bracketed-ref"
	case KindQualifiedRef:
		return "qualified-ref"
	case KindTableRef:
		return "table-ref"
	case KindOperator:
		return "operator"
	default:
		return "other"
	}
}

// IsReference reports whether tokens of this kind name another model object.
func (k Kind) IsReference() bool {
	return k == KindBracketedRef || k == KindQualifiedRef || k == KindTableRef
}

// Span is a half-open byte range [Start, End) within the formula text.
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int { return s.End - s.Start }

// Valid reports whether the span covers at least one byte.
func (s Span) Valid() bool { return s.End > s.Start }

// Token is one classified span of formula text.
type Token struct {
	Kind Kind
	Span Span
	// Text is the raw source slice covered by Span.
	Text string

	// Table is the decoded table name for KindTableRef and KindQualifiedRef.
	Table string
	// Name is the decoded member name for KindBracketedRef and KindQualifiedRef.
	Name string
	// TableSpan covers the table part including quotes (or the bare
	// identifier) for tokens that have one.
	TableSpan Span
	// NameSpan covers the bracketed member part including brackets for
	// tokens that have one.
	NameSpan Span
}
