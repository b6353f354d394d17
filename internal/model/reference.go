package model

import "strings"

// QuoteTable renders a table name in its canonical quoted reference form:
// 'Sales', with embedded quotes doubled.
func QuoteTable(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// BracketName renders a member name in its canonical bracketed reference
// form: [Total Sales], with embedded closing brackets doubled.
func BracketName(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// CanonicalRef returns the fully qualified reference text for a node as
// it would appear inside a formula: 'Table' for tables and
// 'Table'[Name] for columns and measures. Empty for kinds that cannot be
// referenced.
func CanonicalRef(n *Node) string {
	switch n.kind {
	case KindTable:
		return QuoteTable(n.name)
	case KindColumn, KindMeasure:
		if t := n.Table(); t != nil {
			return QuoteTable(t.name) + BracketName(n.name)
		}
		return BracketName(n.name)
	default:
		return ""
	}
}
