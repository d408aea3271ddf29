package keycache

import (
	"time"

	"github.com/miekg/dns"
	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/hadrianlabs/dnsval/rrset"
)

// State records why a KeyEntry holds the DNSKEY set it does, per spec.md
// §4.7's validated-key-cache invariants: an entry is exactly one of
// good (a verified DNSKEY SRRset), null (proven insecure: no DS at this
// name) or bad (validation failed; treat as Bogus without reverifying).
type State uint8

const (
	Good State = iota
	Null
	Bad
)

// KeyEntry is the cached outcome of validating a zone's DNSKEY RRset, keyed
// by owner name.
type KeyEntry struct {
	Owner   string
	Class   uint16
	State   State
	Keys    *rrset.SRRset // non-nil only when State == Good
	Expires time.Time
}

func (e *KeyEntry) IsGood() bool { return e.State == Good }
func (e *KeyEntry) IsNull() bool { return e.State == Null }
func (e *KeyEntry) IsBad() bool  { return e.State == Bad }

type key struct {
	name  string
	class uint16
}

// Cache is a thread-safe cache of KeyEntry values, indexed by owner name.
// It is backed by orcaman/concurrent-map the way johanix/tdns's
// cache.DnskeyCacheT keys CachedDnskeyRRset values, since key validation
// jobs for sibling zones may run concurrently.
type Cache struct {
	entries cmap.ConcurrentMap[string, *KeyEntry]
}

// New builds an empty key cache.
func New() *Cache {
	return &Cache{entries: cmap.New[*KeyEntry]()}
}

func mapKey(k key) string {
	return k.name + "/" + dns.Class(k.class).String()
}

// Put installs or replaces the entry for (owner,class).
func (c *Cache) Put(e *KeyEntry) {
	e.Owner = dns.CanonicalName(e.Owner)
	c.entries.Set(mapKey(key{name: e.Owner, class: e.Class}), e)
}

// Get returns the exact entry for (owner,class), if present and unexpired.
func (c *Cache) Get(owner string, class uint16) (*KeyEntry, bool) {
	owner = dns.CanonicalName(owner)
	e, ok := c.entries.Get(mapKey(key{name: owner, class: class}))
	if !ok {
		return nil, false
	}
	if !e.Expires.IsZero() && time.Now().After(e.Expires) {
		c.entries.Remove(mapKey(key{name: owner, class: class}))
		return nil, false
	}
	return e, true
}

// Find walks up from name to the nearest cached ancestor entry (including
// name itself), per spec.md §4.7: validation of a subordinate zone's
// DNSKEY set reuses the closest validated ancestor's state rather than
// re-walking all the way to the trust anchor every time.
func (c *Cache) Find(name string, class uint16) (*KeyEntry, bool) {
	name = dns.CanonicalName(name)
	for {
		if e, ok := c.Get(name, class); ok {
			return e, true
		}
		if name == "." {
			return nil, false
		}
		name = stripLeftmostLabel(name)
	}
}

// Remove evicts the entry for (owner,class).
func (c *Cache) Remove(owner string, class uint16) {
	owner = dns.CanonicalName(owner)
	c.entries.Remove(mapKey(key{name: owner, class: class}))
}

// Len reports the number of cached entries.
func (c *Cache) Len() int { return c.entries.Count() }
