// Package themes codes free-text feedback against a keyword codebook.
package themes

import "strings"

// Theme is a codebook category name.
type Theme string

const (
	Transparency   Theme = "transparency"
	Control        Theme = "control"
	Anonymity      Theme = "anonymity"
	Risk           Theme = "risk"
	Purpose        Theme = "purpose"
	Storage        Theme = "storage"
	Retention      Theme = "retention"
	Trust          Theme = "trust"
	Civic          Theme = "civic"
	GeneralPrivacy Theme = "general_privacy"
)

// Codebook maps each theme to the keywords that indicate it. Matching is
// case-insensitive substring matching without word boundaries, so "worried"
// triggers the risk keyword "worry".
type Codebook struct {
	order    []Theme
	keywords map[Theme][]string
}

// Default returns the study codebook: ten themes in fixed report order.
func Default() *Codebook {
	cb := &Codebook{keywords: map[Theme][]string{
		Transparency:   {"transparent", "clear", "understand", "know", "information", "explain", "disclosure"},
		Control:        {"control", "choice", "choose", "decide", "option", "configure", "granular"},
		Anonymity:      {"anonymous", "anonymity", "identity", "personal", "identifiable", "private"},
		Risk:           {"risk", "danger", "unsafe", "concern", "worry", "worried", "afraid", "misuse"},
		Purpose:        {"purpose", "research", "academic", "science", "commercial", "profit"},
		Storage:        {"storage", "store", "server", "switzerland", "local", "location", "where"},
		Retention:      {"delete", "retain", "keep", "time", "duration", "permanent", "temporary"},
		Trust:          {"trust", "believe", "reliable", "credible", "honest", "trustworthy"},
		Civic:          {"civic", "citizen", "democracy", "vote", "public", "society", "benefit"},
		GeneralPrivacy: {"privacy", "data protection", "gdpr", "sensitive"},
	}}
	cb.order = []Theme{
		Transparency, Control, Anonymity, Risk, Purpose,
		Storage, Retention, Trust, Civic, GeneralPrivacy,
	}
	return cb
}

// NewCodebook builds a codebook from explicit theme/keyword pairs,
// preserving the given order. Keywords are lowered once here.
func NewCodebook(order []Theme, keywords map[Theme][]string) *Codebook {
	lowered := make(map[Theme][]string, len(keywords))
	for theme, kws := range keywords {
		ls := make([]string, len(kws))
		for i, k := range kws {
			ls[i] = strings.ToLower(k)
		}
		lowered[theme] = ls
	}
	return &Codebook{order: order, keywords: lowered}
}

// Themes lists the codebook's themes in report order.
func (c *Codebook) Themes() []Theme { return c.order }

// Code returns the themes present in the text, in codebook order. Each
// theme appears at most once. Empty or whitespace-only text codes to an
// empty set.
func (c *Codebook) Code(text string) []Theme {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	lower := strings.ToLower(text)

	var found []Theme
	for _, theme := range c.order {
		for _, kw := range c.keywords[theme] {
			if strings.Contains(lower, kw) {
				found = append(found, theme)
				break
			}
		}
	}
	return found
}
