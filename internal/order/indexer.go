// Package order maintains lexicographically ordered keys that can always be
// subdivided between any two neighbours without touching existing keys.
//
// Callers never see key strings directly; they hold opaque Refs. The
// indexer's ref-to-string map is the source of truth, which lets it
// redistribute every key to a short fixed length when keys grow too long
// under one-sided insertion, without invalidating any Ref.
package order

import (
	"slices"
	"strings"
	"sync"

	"github.com/go-logr/logr"
)

// Ref is an opaque handle to an order key.
type Ref uint64

// NoRef is the zero Ref. It is never issued.
const NoRef Ref = 0

// DefaultRedistributeThreshold is the key length that triggers a
// redistribution pass.
const DefaultRedistributeThreshold = 24

// Stats describes indexer activity.
type Stats struct {
	Issued          uint64
	Live            int
	MaxLength       int
	Redistributions int
}

// Indexer issues and compares order keys. It is safe for concurrent use.
type Indexer struct {
	mu sync.RWMutex

	next   Ref
	values map[Ref]string

	maxLen          int
	threshold       int
	redistributions int

	log logr.Logger
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithRedistributeThreshold sets the key length above which all keys are
// redistributed. Zero disables redistribution.
func WithRedistributeThreshold(n int) Option {
	return func(ix *Indexer) {
		ix.threshold = n
	}
}

// WithLogger sets the logger.
func WithLogger(log logr.Logger) Option {
	return func(ix *Indexer) {
		ix.log = log
	}
}

// NewIndexer creates an empty indexer.
func NewIndexer(opts ...Option) *Indexer {
	ix := &Indexer{
		values:    make(map[Ref]string),
		threshold: DefaultRedistributeThreshold,
		log:       logr.Discard(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Above returns a new ref ordering after ref with no upper bound.
// With NoRef it returns a ref ordering after every live ref.
func (ix *Indexer) Above(ref Ref) (Ref, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	var lo string
	if ref == NoRef {
		lo = ix.maxValueLocked()
	} else {
		v, ok := ix.values[ref]
		if !ok {
			return NoRef, invalidRef("above", ref)
		}
		lo = v
	}
	return ix.issueLocked("above", lo, "", ref)
}

// Below returns a new ref ordering before ref with no lower bound.
// With NoRef it returns a ref ordering before every live ref.
func (ix *Indexer) Below(ref Ref) (Ref, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	var hi string
	if ref == NoRef {
		hi = ix.minValueLocked()
	} else {
		v, ok := ix.values[ref]
		if !ok {
			return NoRef, invalidRef("below", ref)
		}
		hi = v
	}
	return ix.issueLocked("below", "", hi, ref)
}

// Between returns a new ref ordering strictly between lower and upper.
// The value of lower must be strictly less than the value of upper.
func (ix *Indexer) Between(lower, upper Ref) (Ref, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	lo, ok := ix.values[lower]
	if !ok {
		return NoRef, invalidRef("between", lower, upper)
	}
	hi, ok := ix.values[upper]
	if !ok {
		return NoRef, invalidRef("between", lower, upper)
	}
	if lo >= hi {
		return NoRef, orderingViolation("between", lower, upper)
	}
	return ix.issueLocked("between", lo, hi, lower, upper)
}

// Compare returns -1, 0 or 1 comparing the keys behind a and b.
func (ix *Indexer) Compare(a, b Ref) (int, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	va, ok := ix.values[a]
	if !ok {
		return 0, invalidRef("compare", a, b)
	}
	vb, ok := ix.values[b]
	if !ok {
		return 0, invalidRef("compare", a, b)
	}
	return strings.Compare(va, vb), nil
}

// Value returns the key string behind ref.
func (ix *Indexer) Value(ref Ref) (string, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	v, ok := ix.values[ref]
	if !ok {
		return "", invalidRef("value", ref)
	}
	return v, nil
}

// Has reports whether ref is live.
func (ix *Indexer) Has(ref Ref) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.values[ref]
	return ok
}

// Release forgets ref. Releasing an unknown ref is a no-op.
func (ix *Indexer) Release(ref Ref) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.values, ref)
}

// Len returns the number of live refs.
func (ix *Indexer) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.values)
}

// MaxLength returns the longest key length issued since the last
// redistribution.
func (ix *Indexer) MaxLength() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.maxLen
}

// Stats returns a snapshot of indexer activity.
func (ix *Indexer) Stats() Stats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return Stats{
		Issued:          uint64(ix.next),
		Live:            len(ix.values),
		MaxLength:       ix.maxLen,
		Redistributions: ix.redistributions,
	}
}

// Redistribute reassigns every live ref an evenly spaced key of minimal
// equal length, preserving relative order.
func (ix *Indexer) Redistribute() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.redistributeLocked()
}

func (ix *Indexer) issueLocked(op string, lo, hi string, refs ...Ref) (Ref, error) {
	key, err := midpoint(lo, hi)
	if err != nil {
		return NoRef, orderingViolation(op, refs...)
	}

	ix.next++
	ref := ix.next
	ix.values[ref] = key

	if len(key) > ix.maxLen {
		ix.maxLen = len(key)
	}
	if ix.threshold > 0 && len(key) > ix.threshold {
		ix.redistributeLocked()
	}
	return ref, nil
}

func (ix *Indexer) redistributeLocked() {
	refs := make([]Ref, 0, len(ix.values))
	for ref := range ix.values {
		refs = append(refs, ref)
	}
	slices.SortFunc(refs, func(a, b Ref) int {
		return strings.Compare(ix.values[a], ix.values[b])
	})

	keys := spread(len(refs))
	if len(keys) > 0 && len(keys[0]) >= ix.maxLen {
		// Nothing to gain.
		return
	}

	before := ix.maxLen
	ix.maxLen = 0
	for i, ref := range refs {
		ix.values[ref] = keys[i]
		if len(keys[i]) > ix.maxLen {
			ix.maxLen = len(keys[i])
		}
	}
	ix.redistributions++
	ix.log.V(1).Info("redistributed order keys", "refs", len(refs), "maxLengthBefore", before, "maxLengthAfter", ix.maxLen)
}

func (ix *Indexer) maxValueLocked() string {
	var hi string
	for _, v := range ix.values {
		if v > hi {
			hi = v
		}
	}
	return hi
}

func (ix *Indexer) minValueLocked() string {
	var lo string
	first := true
	for _, v := range ix.values {
		if first || v < lo {
			lo = v
			first = false
		}
	}
	return lo
}
