// Package parser implements the definition extractor: it turns raw file
// text into factory and trait entities with precise source locations.
package parser

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/factorylens/factorylens/internal/files"
	"github.com/factorylens/factorylens/internal/model"
	"github.com/factorylens/factorylens/internal/notify"
	"github.com/factorylens/factorylens/internal/pattern"
)

const (
	// DefaultBatchSize is the number of files read and parsed
	// concurrently within one batch group.
	DefaultBatchSize = 10
	minBatchSize     = 1
	maxBatchSize     = 50
)

// Extractor reads files through the file collaborator and parses them.
// Parsing itself is stateless; the extractor only carries collaborators
// and the batch size.
type Extractor struct {
	fs        files.FS
	notifier  notify.Notifier
	batchSize int
}

// NewExtractor creates an extractor. batchSize is clamped to [1,50];
// zero or negative selects DefaultBatchSize.
func NewExtractor(fs files.FS, notifier notify.Notifier, batchSize int) *Extractor {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if batchSize < minBatchSize {
		batchSize = minBatchSize
	}
	if batchSize > maxBatchSize {
		batchSize = maxBatchSize
	}
	if notifier == nil {
		notifier = notify.Discard
	}
	return &Extractor{fs: fs, notifier: notifier, batchSize: batchSize}
}

// blockKind classifies an open do..end block on the scanner stack.
type blockKind int

const (
	blockFactory blockKind = iota
	blockOther
)

// openBlock is one entry of the scanner's block stack.
type openBlock struct {
	kind    blockKind
	factory *model.Factory // set for blockFactory entries
}

// ParseText extracts factory and trait definitions from text. It is
// pure, synchronous and deterministic: the same input always yields
// structurally equal output, and no state is retained between calls.
//
// Block boundaries are found by an explicit line-by-line do/end depth
// scanner rather than a non-greedy pattern, so traits inside nested
// factory blocks are attributed to their true immediate parent.
func ParseText(text, fileID string) *model.ParseResult {
	result := model.EmptyParseResult()
	if text == "" {
		return result
	}

	var stack []*openBlock
	lines := strings.Split(text, "\n")

	for lineNo, line := range lines {
		// A close pops before anything else on the line is considered.
		if pattern.ClosesBlock(line) {
			if n := len(stack); n > 0 {
				stack = stack[:n-1]
			}
			continue
		}

		if headers := pattern.FactoryHeaders(line); len(headers) > 0 {
			h := headers[0]
			loc := model.Location{
				FileID: fileID,
				Line:   lineNo,
				Column: h.NameOffset,
				Length: len(h.Name) + 1,
			}
			factory := model.NewFactory(h.Name, loc, pattern.ParentName(line))
			result.Factories = append(result.Factories, factory)

			if pattern.OpensBlock(line) {
				stack = append(stack, &openBlock{kind: blockFactory, factory: factory})
			}
			continue
		}

		if headers := pattern.TraitHeaders(line); len(headers) > 0 {
			// A trait header is only valid inside a factory block;
			// outside one it silently produces nothing.
			if owner := enclosingFactory(stack); owner != nil {
				h := headers[0]
				loc := model.Location{
					FileID: fileID,
					Line:   lineNo,
					Column: h.NameOffset,
					Length: len(h.Name) + 1,
				}
				trait := model.NewTrait(h.Name, loc, owner.Name)
				result.Traits = append(result.Traits, trait)
				owner.AddTrait(trait)
			}
			if pattern.OpensBlock(line) {
				stack = append(stack, &openBlock{kind: blockOther})
			}
			continue
		}

		if pattern.OpensBlock(line) {
			stack = append(stack, &openBlock{kind: blockOther})
		}
	}

	return result
}

// enclosingFactory returns the factory of the innermost factory block on
// the stack, or nil when no factory block is open.
func enclosingFactory(stack []*openBlock) *model.Factory {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].kind == blockFactory {
			return stack[i].factory
		}
	}
	return nil
}

// ParseFile reads and parses a single file. A read failure is recovered
// locally: it is reported to the notifier at warning level and yields an
// empty result, never an error. The returned error is reserved for
// context cancellation.
func (e *Extractor) ParseFile(ctx context.Context, fileID string) (*model.ParseResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text, err := e.fs.ReadFile(fileID)
	if err != nil {
		notify.Warnf(e.notifier, "parser",
			fmt.Sprintf("failed to read %s, skipping", fileID), err)
		return model.EmptyParseResult(), nil
	}
	return ParseText(text, fileID), nil
}

// ParseMultipleFiles reads and parses files concurrently in bounded
// groups of the extractor's batch size. Groups run one after another;
// members within a group run concurrently. Per-file results keep the
// file's own internal definition order, and are concatenated in each
// group's completion order — callers must not rely on cross-file
// ordering matching the input list. A single file's failure does not
// affect its siblings.
func (e *Extractor) ParseMultipleFiles(ctx context.Context, fileIDs []string) (*model.ParseResult, error) {
	combined := model.EmptyParseResult()

	for start := 0; start < len(fileIDs); start += e.batchSize {
		end := start + e.batchSize
		if end > len(fileIDs) {
			end = len(fileIDs)
		}

		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		for _, fileID := range fileIDs[start:end] {
			fileID := fileID
			g.Go(func() error {
				res := e.parseFileIsolated(gctx, fileID)
				mu.Lock()
				combined.Merge(res)
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	return combined, nil
}

// ParseFilesByID behaves like ParseMultipleFiles but keeps each file's
// result separate, keyed by file ID. Used when the caller needs to apply
// results in its own order (e.g. priority-ordered bulk load).
func (e *Extractor) ParseFilesByID(ctx context.Context, fileIDs []string) (map[string]*model.ParseResult, error) {
	results := make(map[string]*model.ParseResult, len(fileIDs))

	for start := 0; start < len(fileIDs); start += e.batchSize {
		end := start + e.batchSize
		if end > len(fileIDs) {
			end = len(fileIDs)
		}

		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		for _, fileID := range fileIDs[start:end] {
			fileID := fileID
			g.Go(func() error {
				res := e.parseFileIsolated(gctx, fileID)
				mu.Lock()
				results[fileID] = res
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	return results, nil
}

// parseFileIsolated parses one file for a batch, converting any
// unexpected panic into a warning plus an empty result so one bad file
// cannot abort the batch.
func (e *Extractor) parseFileIsolated(ctx context.Context, fileID string) (result *model.ParseResult) {
	defer func() {
		if r := recover(); r != nil {
			notify.Warnf(e.notifier, "parser",
				fmt.Sprintf("unexpected failure parsing %s, skipping", fileID),
				fmt.Errorf("%v", r))
			result = model.EmptyParseResult()
		}
	}()

	res, err := e.ParseFile(ctx, fileID)
	if err != nil {
		// Context cancellation; contribute nothing.
		return model.EmptyParseResult()
	}
	return res
}
