// Package model defines the core domain types: leads, scrape jobs, and
// provider quota rows.
package model

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Lead is a candidate business record. Empty string means "unknown".
// A lead is immutable once added to a result set, except for enrichment
// filling a blank Email or Phone.
type Lead struct {
	Company string `json:"company"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Website string `json:"website"`
}

// HasContact reports whether the lead carries at least one way to reach
// the business (phone, email, or website).
func (l Lead) HasContact() bool {
	return l.Phone != "" || l.Email != "" || l.Website != ""
}

// NeedsEnrichment reports whether the lead has a website to enrich from
// but no direct contact fields yet.
func (l Lead) NeedsEnrichment() bool {
	return l.Website != "" && l.Email == "" && l.Phone == ""
}

// Key returns the dedup key over the given fields, joined by "-".
// Defaults to company+address when no fields are given.
func (l Lead) Key(fields ...string) string {
	if len(fields) == 0 {
		fields = []string{"company", "address"}
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		switch f {
		case "company":
			parts = append(parts, NormalizeKey(l.Company))
		case "address":
			parts = append(parts, NormalizeKey(l.Address))
		case "phone":
			parts = append(parts, DigitsOnly(l.Phone))
		case "email":
			parts = append(parts, NormalizeKey(l.Email))
		case "website":
			parts = append(parts, NormalizeKey(l.Website))
		}
	}
	return strings.Join(parts, "-")
}

var stripMarks = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// NormalizeKey lowercases, trims, collapses inner whitespace, and folds
// accented characters so "Café  Möller " and "cafe moller" compare equal.
func NormalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}
	return strings.Join(strings.Fields(s), " ")
}

// DigitsOnly strips everything but digits from a phone number.
func DigitsOnly(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
