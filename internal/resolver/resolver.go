// Package resolver scans arbitrary text for factory call sites and maps
// the referenced symbols back to cached definitions.
package resolver

import (
	"strings"

	"github.com/factorylens/factorylens/internal/model"
	"github.com/factorylens/factorylens/internal/pattern"
	"github.com/factorylens/factorylens/internal/store"
)

// Resolver resolves call-site references against the cache store. It is
// a pure function of its inputs (text plus the current store snapshot)
// and holds no state between calls; it reads the store, never writes it.
type Resolver struct {
	lib   *pattern.Library
	store *store.Store
}

// New creates a resolver using the given pattern library. A nil library
// (the call-site matcher could not be constructed) makes every scan
// yield zero references; the construction failure is reported where the
// library is built.
func New(lib *pattern.Library, st *store.Store) *Resolver {
	return &Resolver{lib: lib, store: st}
}

// ResolveReferences scans text for call sites and returns resolved
// references in call-site order; within one call site the factory
// reference precedes its trait references. Unresolved symbols are
// silently skipped.
func (r *Resolver) ResolveReferences(text string) []model.Reference {
	refs := []model.Reference{}
	if r.lib == nil || text == "" {
		return refs
	}

	lineStarts := buildLineStarts(text)

	for _, site := range r.lib.CallSites(text) {
		if factory, ok := r.store.GetFactory(site.FactoryName); ok {
			line, col := locate(lineStarts, site.FactoryOffset)
			refs = append(refs, model.Reference{
				Span:        model.Span{Line: line, Column: col, Length: len(site.FactoryName) + 1},
				Kind:        model.FactoryReference,
				Target:      factory.Location,
				FactoryName: site.FactoryName,
			})
		}

		// Subsequent :identifier tokens in the same call site are trait
		// candidates of the call site's factory. The factory token
		// itself is already consumed: Rest starts after it.
		for _, tok := range pattern.ReferenceTokens(site.Rest) {
			trait, ok := r.store.GetTrait(site.FactoryName, tok.Name)
			if !ok {
				continue
			}
			line, col := locate(lineStarts, site.RestOffset+tok.Offset)
			refs = append(refs, model.Reference{
				Span:        model.Span{Line: line, Column: col, Length: len(tok.Name) + 1},
				Kind:        model.TraitReference,
				Target:      trait.Location,
				FactoryName: site.FactoryName,
			})
		}
	}

	return refs
}

// buildLineStarts returns the byte offset of the start of every line.
func buildLineStarts(text string) []int {
	starts := []int{0}
	for i := 0; i < len(text); {
		nl := strings.IndexByte(text[i:], '\n')
		if nl < 0 {
			break
		}
		i += nl + 1
		starts = append(starts, i)
	}
	return starts
}

// locate converts a byte offset into a 0-based line/column pair using
// binary search over the line start table.
func locate(lineStarts []int, offset int) (line, column int) {
	lo, hi := 0, len(lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo, offset - lineStarts[lo]
}
