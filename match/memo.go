package match

import "github.com/google/uuid"

type memoKey struct {
	id  uuid.UUID
	pos int
}

type memoEntry struct {
	consumed int
	frags    []*Trace
	ok       bool
}

// memoize caches a choice outcome. Results under active parameter scopes
// are not cached: the same choice can match differently depending on
// what its parameter references are bound to. Neither are results
// evaluated inside a lookahead: there failure expectations go
// unrecorded, and replaying such an entry in normal position would
// leave the furthest-failure diagnostic empty.
func (e *Engine) memoize(key memoKey, start int, frags []*Trace, ok bool) {
	if e.memo == nil || len(e.scopes) > 0 || e.quiet > 0 {
		return
	}
	e.memo[key] = memoEntry{consumed: e.pos - start, frags: frags, ok: ok}
}

func (e *Engine) memoized(key memoKey) (memoEntry, bool) {
	if e.memo == nil || len(e.scopes) > 0 || e.quiet > 0 {
		return memoEntry{}, false
	}
	ent, ok := e.memo[key]
	return ent, ok
}
