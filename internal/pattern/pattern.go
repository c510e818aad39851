// Package pattern holds the fixed text matchers used to locate factory
// and trait definitions and their call sites. All matchers operate on
// raw byte offsets into the scanned text, never on a parsed token
// stream, so offset arithmetic is the primary correctness concern for
// callers.
package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// factoryHeaderRe matches `factory :name`. A missing leading colon
	// (e.g. `factory user`) silently fails to match; malformed headers
	// are not errors.
	factoryHeaderRe = regexp.MustCompile(`\bfactory\s+:([A-Za-z0-9_]+)`)

	// parentOptionRe extracts `parent: :name` from a factory header line.
	parentOptionRe = regexp.MustCompile(`\bparent:\s*:([A-Za-z0-9_]+)`)

	// traitHeaderRe matches `trait :name`. Only meaningful inside a
	// definition block; the extractor enforces that.
	traitHeaderRe = regexp.MustCompile(`\btrait\s+:([A-Za-z0-9_]+)`)

	// blockOpenRe matches a line that opens a do..end block, with
	// optional block arguments (`do |user|`).
	blockOpenRe = regexp.MustCompile(`\bdo\s*(\|[^|]*\|)?\s*$`)

	// blockCloseRe matches a line that closes a do..end block.
	blockCloseRe = regexp.MustCompile(`^\s*end\b`)

	// referenceTokenRe matches a generic `:identifier` token.
	referenceTokenRe = regexp.MustCompile(`:([A-Za-z0-9_]+)`)

	// validNameRe accepts names made of letters, digits and underscores.
	validNameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

// Library bundles the fixed matchers with the one matcher that is
// parameterized by configuration: the call-site matcher built from the
// recognized call identifiers.
type Library struct {
	callSiteRe *regexp.Regexp
}

// NewLibrary builds a pattern library recognizing call sites of the
// given identifiers (e.g. create, build, create_list). Every identifier
// must pass the name-validity matcher; otherwise the call-site matcher
// cannot be constructed and an error is returned.
func NewLibrary(callIdentifiers []string) (*Library, error) {
	if len(callIdentifiers) == 0 {
		return nil, fmt.Errorf("no call identifiers configured")
	}
	for _, id := range callIdentifiers {
		if !ValidName(id) {
			return nil, fmt.Errorf("invalid call identifier %q", id)
		}
	}

	// identifier(optional-paren) :name1[, :name2 ...][, trailing args]
	expr := `\b(?:` + strings.Join(callIdentifiers, "|") + `)\s*\(?\s*:([A-Za-z0-9_]+)([^)\n]*)`
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("failed to compile call-site matcher: %w", err)
	}
	return &Library{callSiteRe: re}, nil
}

// FactoryHeader is one `factory :name` match.
type FactoryHeader struct {
	Name   string
	Offset int // byte offset of the match start
	// NameOffset is the byte offset of the ':' introducing the name.
	NameOffset int
}

// FactoryHeaders returns all factory definition headers in text, in
// scan order.
func FactoryHeaders(text string) []FactoryHeader {
	matches := factoryHeaderRe.FindAllStringSubmatchIndex(text, -1)
	headers := make([]FactoryHeader, 0, len(matches))
	for _, m := range matches {
		headers = append(headers, FactoryHeader{
			Name:       text[m[2]:m[3]],
			Offset:     m[0],
			NameOffset: m[2] - 1,
		})
	}
	return headers
}

// ParentName extracts the parent factory name from a header line, or ""
// when the header declares no parent.
func ParentName(headerLine string) string {
	m := parentOptionRe.FindStringSubmatch(headerLine)
	if m == nil {
		return ""
	}
	return m[1]
}

// TraitHeader is one `trait :name` match.
type TraitHeader struct {
	Name       string
	Offset     int
	NameOffset int
}

// TraitHeaders returns all trait headers in text, in scan order.
func TraitHeaders(text string) []TraitHeader {
	matches := traitHeaderRe.FindAllStringSubmatchIndex(text, -1)
	headers := make([]TraitHeader, 0, len(matches))
	for _, m := range matches {
		headers = append(headers, TraitHeader{
			Name:       text[m[2]:m[3]],
			Offset:     m[0],
			NameOffset: m[2] - 1,
		})
	}
	return headers
}

// OpensBlock reports whether the line opens a do..end block.
func OpensBlock(line string) bool {
	return blockOpenRe.MatchString(line)
}

// ClosesBlock reports whether the line closes a do..end block.
func ClosesBlock(line string) bool {
	return blockCloseRe.MatchString(line)
}

// CallSite is one match of the configured call-site matcher. The first
// symbol is the factory reference; Rest holds the remainder of the call
// site (trait symbols and trailing arguments).
type CallSite struct {
	// FactoryName is the first symbol's name, leading colon stripped.
	FactoryName string
	// FactoryOffset is the byte offset of the ':' of the first symbol.
	FactoryOffset int
	// Rest is the text after the first symbol, up to the end of the
	// call-site match.
	Rest string
	// RestOffset is the byte offset where Rest begins.
	RestOffset int
}

// CallSites returns all call-site matches in text, in scan order.
func (l *Library) CallSites(text string) []CallSite {
	matches := l.callSiteRe.FindAllStringSubmatchIndex(text, -1)
	sites := make([]CallSite, 0, len(matches))
	for _, m := range matches {
		sites = append(sites, CallSite{
			FactoryName:   text[m[2]:m[3]],
			FactoryOffset: m[2] - 1,
			Rest:          text[m[4]:m[5]],
			RestOffset:    m[4],
		})
	}
	return sites
}

// Token is one `:identifier` reference token.
type Token struct {
	Name string
	// Offset is the byte offset of the leading ':'.
	Offset int
}

// ReferenceTokens returns all `:identifier` tokens in text, in scan
// order.
func ReferenceTokens(text string) []Token {
	matches := referenceTokenRe.FindAllStringSubmatchIndex(text, -1)
	tokens := make([]Token, 0, len(matches))
	for _, m := range matches {
		tokens = append(tokens, Token{Name: text[m[2]:m[3]], Offset: m[0]})
	}
	return tokens
}

// ValidName reports whether s is a valid factory/trait/identifier name:
// letters, digits and underscores only.
func ValidName(s string) bool {
	return validNameRe.MatchString(s)
}
