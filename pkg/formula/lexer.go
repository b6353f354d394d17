package formula

import (
	"fmt"
	"strings"
)

// LexError reports a scanning failure with its byte offset.
type LexError struct {
	Offset  int
	Message string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at offset %d: %s", e.Offset, e.Message)
}

// Common error messages.
const (
	errUnterminatedString  = "unterminated string literal"
	errUnterminatedQuote   = "unterminated quoted table name"
	errUnterminatedBracket = "unterminated bracketed name"
	errUnterminatedComment = "unterminated block comment"
)

// Tokenize scans the formula text into an ordered sequence of classified
// tokens. Whitespace is skipped; everything else, comments included, is
// emitted. The returned slice is nil only for all-whitespace input.
func Tokenize(input string) ([]Token, error) {
	l := &lexer{input: input}
	var toks []Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		if tok == nil {
			return toks, nil
		}
		toks = append(toks, *tok)
	}
}

// lexer is a byte-driven scanner over a single formula.
type lexer struct {
	input string
	pos   int
}

func (l *lexer) eof() bool { return l.pos >= len(l.input) }

func (l *lexer) peek() byte {
	if l.eof() {
		return 0
	}
	return l.input[l.pos]
}

func (l *lexer) peekAt(off int) byte {
	if l.pos+off >= len(l.input) {
		return 0
	}
	return l.input[l.pos+off]
}

// next returns the next token, or nil at end of input.
func (l *lexer) next() (*Token, error) {
	l.skipWhitespace()
	if l.eof() {
		return nil, nil
	}

	start := l.pos
	ch := l.peek()

	switch {
	case ch == '/' && l.peekAt(1) == '/':
		return l.readLineComment(start), nil
	case ch == '-' && l.peekAt(1) == '-':
		return l.readLineComment(start), nil
	case ch == '/' && l.peekAt(1) == '*':
		return l.readBlockComment(start)
	case ch == '"':
		return l.readString(start)
	case ch == '\'':
		return l.readQuotedReference(start)
	case ch == '[':
		return l.readBracketedReference(start)
	case isDigit(ch):
		return l.readNumber(start), nil
	case isIdentStart(ch):
		return l.readIdentifier(start)
	case isOperator(ch):
		l.pos++
		return l.token(KindOperator, start), nil
	default:
		l.pos++
		return l.token(KindOther, start), nil
	}
}

func (l *lexer) skipWhitespace() {
	for !l.eof() {
		switch l.peek() {
		case ' ', '\t', '\r', '\n':
			l.pos++
		default:
			return
		}
	}
}

func (l *lexer) token(kind Kind, start int) *Token {
	return &Token{
		Kind: kind,
		Span: Span{Start: start, End: l.pos},
		Text: l.input[start:l.pos],
	}
}

func (l *lexer) readLineComment(start int) *Token {
	for !l.eof() && l.peek() != '\n' {
		l.pos++
	}
	return l.token(KindComment, start)
}

func (l *lexer) readBlockComment(start int) (*Token, error) {
	l.pos += 2 // consume /*
	for !l.eof() {
		if l.peek() == '*' && l.peekAt(1) == '/' {
			l.pos += 2
			return l.token(KindComment, start), nil
		}
		l.pos++
	}
	return nil, &LexError{Offset: start, Message: errUnterminatedComment}
}

// readString scans a double-quoted string literal. A doubled quote ""
// escapes an embedded quote.
func (l *lexer) readString(start int) (*Token, error) {
	l.pos++ // consume opening quote
	for !l.eof() {
		if l.peek() == '"' {
			if l.peekAt(1) == '"' {
				l.pos += 2
				continue
			}
			l.pos++
			return l.token(KindString, start), nil
		}
		l.pos++
	}
	return nil, &LexError{Offset: start, Message: errUnterminatedString}
}

// readQuotedReference scans 'Table' and, if a bracketed name follows
// immediately, the combined 'Table'[Name] reference.
func (l *lexer) readQuotedReference(start int) (*Token, error) {
	table, err := l.readQuotedName(start)
	if err != nil {
		return nil, err
	}
	tableSpan := Span{Start: start, End: l.pos}

	if l.peek() != '[' {
		tok := l.token(KindTableRef, start)
		tok.Table = table
		tok.TableSpan = tableSpan
		return tok, nil
	}

	nameStart := l.pos
	name, err := l.readBracketedName(nameStart)
	if err != nil {
		return nil, err
	}
	tok := l.token(KindQualifiedRef, start)
	tok.Table = table
	tok.Name = name
	tok.TableSpan = tableSpan
	tok.NameSpan = Span{Start: nameStart, End: l.pos}
	return tok, nil
}

// readBracketedReference scans an unqualified [Name] reference.
func (l *lexer) readBracketedReference(start int) (*Token, error) {
	name, err := l.readBracketedName(start)
	if err != nil {
		return nil, err
	}
	tok := l.token(KindBracketedRef, start)
	tok.Name = name
	tok.NameSpan = tok.Span
	return tok, nil
}

// readQuotedName consumes 'Name' and returns the decoded name.
// A doubled quote '' escapes an embedded quote.
func (l *lexer) readQuotedName(start int) (string, error) {
	l.pos++ // consume opening quote
	var sb strings.Builder
	for !l.eof() {
		ch := l.peek()
		if ch == '\'' {
			if l.peekAt(1) == '\'' {
				sb.WriteByte('\'')
				l.pos += 2
				continue
			}
			l.pos++
			return sb.String(), nil
		}
		sb.WriteByte(ch)
		l.pos++
	}
	return "", &LexError{Offset: start, Message: errUnterminatedQuote}
}

// readBracketedName consumes [Name] and returns the decoded name.
// A doubled bracket ]] escapes an embedded closing bracket.
func (l *lexer) readBracketedName(start int) (string, error) {
	l.pos++ // consume opening bracket
	var sb strings.Builder
	for !l.eof() {
		ch := l.peek()
		if ch == ']' {
			if l.peekAt(1) == ']' {
				sb.WriteByte(']')
				l.pos += 2
				continue
			}
			l.pos++
			return sb.String(), nil
		}
		sb.WriteByte(ch)
		l.pos++
	}
	return "", &LexError{Offset: start, Message: errUnterminatedBracket}
}

func (l *lexer) readNumber(start int) *Token {
	for !l.eof() && (isDigit(l.peek()) || l.peek() == '.') {
		l.pos++
	}
	// Exponent part
	if l.peek() == 'e' || l.peek() == 'E' {
		mark := l.pos
		l.pos++
		if l.peek() == '+' || l.peek() == '-' {
			l.pos++
		}
		if !isDigit(l.peek()) {
			l.pos = mark
		} else {
			for !l.eof() && isDigit(l.peek()) {
				l.pos++
			}
		}
	}
	return l.token(KindNumber, start)
}

// readIdentifier scans a bare word. An identifier immediately followed by
// a bracketed name is an unquoted table qualification: Sales[Amount].
func (l *lexer) readIdentifier(start int) (*Token, error) {
	for !l.eof() && isIdentPart(l.peek()) {
		l.pos++
	}
	tableSpan := Span{Start: start, End: l.pos}

	if l.peek() != '[' {
		return l.token(KindIdentifier, start), nil
	}

	nameStart := l.pos
	name, err := l.readBracketedName(nameStart)
	if err != nil {
		return nil, err
	}
	tok := l.token(KindQualifiedRef, start)
	tok.Table = l.input[tableSpan.Start:tableSpan.End]
	tok.Name = name
	tok.TableSpan = tableSpan
	tok.NameSpan = Span{Start: nameStart, End: l.pos}
	return tok, nil
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch) || ch == '.'
}

func isOperator(ch byte) bool {
	switch ch {
	case '+', '-', '*', '/', '^', '&', '=', '<', '>', '(', ')', ',', ';', '%', '!', '{', '}':
		return true
	}
	return false
}
