package ruleeng

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gowebpki/jcs"

	"github.com/compareguard/ruleanalyzer/pkg/ruletypes"
)

// ResultHandle is the opaque per-call identity handle §9's design notes
// ask for in place of pointer equality: the analyzer mints one when a
// compare result enters Analyze and uses it as the first half of the
// clause-cache key for the lifetime of that call.
type ResultHandle uuid.UUID

// NewResultHandle mints a fresh handle.
func NewResultHandle() ResultHandle { return ResultHandle(uuid.New()) }

func (h ResultHandle) String() string { return uuid.UUID(h).String() }

// ClauseIdentity is a content fingerprint of a clause, used as the
// second half of the clause-cache key. Two clauses with identical
// field/operation/operands/label hash identically, which is exactly
// what the cache wants: the predicate is pure over its inputs, so
// colliding on content (not pointer identity) is correct, not a bug.
type ClauseIdentity string

// clauseIdentityOf JCS-canonicalizes the clause's content and SHA-256
// hashes it, the same content-hash recipe the teacher's
// pdp.ComputeDecisionHash uses for decision hashes
// (core/pkg/pdp/pdp.go).
func clauseIdentityOf(c ruletypes.Clause) ClauseIdentity {
	type canon struct {
		Field     string             `json:"field"`
		Operation ruletypes.Operation `json:"operation"`
		Data      []string           `json:"data,omitempty"`
		DictData  []ruletypes.KVPair `json:"dict_data,omitempty"`
		Label     string             `json:"label,omitempty"`
	}
	raw, err := json.Marshal(canon{c.Field, c.Operation, c.Data, c.DictData, c.Label})
	if err != nil {
		// Marshaling a plain struct of strings cannot fail; fall back
		// to the label (or field+op) rather than panic if it somehow
		// does.
		return ClauseIdentity(c.Label + "|" + c.Field + "|" + string(c.Operation))
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		canonical = raw
	}
	sum := sha256.Sum256(canonical)
	return ClauseIdentity(hex.EncodeToString(sum[:]))
}

type cacheKey struct {
	handle ResultHandle
	clause ClauseIdentity
}

// ClauseCache is the concurrent, race-tolerant clause_cache of §5: an
// insertion race (two goroutines compute the same pure predicate
// concurrently) is tolerated, the last writer harmlessly overwrites
// with an identical value.
type ClauseCache interface {
	Get(handle ResultHandle, clause ClauseIdentity) (value, ok bool)
	Set(handle ResultHandle, clause ClauseIdentity, value bool)
	Clear(handle ResultHandle)
}

// memClauseCache is the default in-process cache backed by sync.Map.
type memClauseCache struct {
	m sync.Map // cacheKey -> bool
}

// NewMemClauseCache returns the default in-process clause cache.
func NewMemClauseCache() ClauseCache { return &memClauseCache{} }

func (c *memClauseCache) Get(handle ResultHandle, clause ClauseIdentity) (bool, bool) {
	v, ok := c.m.Load(cacheKey{handle, clause})
	if !ok {
		return false, false
	}
	return v.(bool), true
}

func (c *memClauseCache) Set(handle ResultHandle, clause ClauseIdentity, value bool) {
	c.m.Store(cacheKey{handle, clause}, value)
}

// Clear removes every entry keyed on handle. Best-effort, as §5
// specifies: a concurrent Set racing this Range/Delete may leave a
// stray entry behind, which is harmless because a fresh Analyze call
// always mints a fresh handle.
func (c *memClauseCache) Clear(handle ResultHandle) {
	c.m.Range(func(k, _ any) bool {
		if key, ok := k.(cacheKey); ok && key.handle == handle {
			c.m.Delete(k)
		}
		return true
	})
}
