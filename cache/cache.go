// Package cache implements the credibility-aware response cache of
// spec.md §4.6. It is shaped like 0xERR0R/blocky's expirationcache
// (cache/expirationcache/expiration_cache.go): an LRU of per-(name,type) entries
// each carrying its own expiry, backed here by hashicorp/golang-lru/v2
// (blocky uses the v1 API; the generic v2 variant removes the interface{}
// boxing blocky works around with its own element[T] wrapper) and guarded
// by a mutex the way blocky's cache guards concurrent Put/Get.
package cache

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2"
	"github.com/miekg/dns"

	"github.com/hadrianlabs/dnsval/rrset"
)

// Credibility ranks the trustworthiness of the source a cached RRset was
// learned from, per spec.md §4.6. Higher values must never be displaced by
// lower ones for the same (name,type).
type Credibility uint8

const (
	Additional Credibility = iota
	NonauthAuthority
	AuthAuthority
	NonauthAnswer
	AuthAnswer
	Glue
	Hint
)

// DefaultMaxEntries bounds the number of (name,type) entries the cache
// tracks, per spec.md §4.6. Each record type cached at a name counts as a
// separate entry; the number of distinct owner names is not bounded as such.
const DefaultMaxEntries = 50_000

// DefaultMaxPositiveTTL and DefaultMaxNegativeTTL cap how long a cache entry
// may live regardless of the TTL carried on the wire, per spec.md §4.6.
const (
	DefaultMaxPositiveTTL = 6 * time.Hour
	DefaultMaxNegativeTTL = 3 * time.Hour
)

// Tag mirrors zone.Tag for cache lookups, plus Unknown for a cache miss.
type Tag uint8

const (
	Unknown Tag = iota
	NXDOMAIN
	SUCCESSFUL
	CNAME
	DNAME
	DELEGATION
	NXRRSET
)

// Response is the tagged outcome of a Cache.Lookup.
type Response struct {
	Tag    Tag
	RRsets []*rrset.RRset
}

type typeKey struct {
	name  string
	rtype uint16
}

type entry struct {
	cred     Credibility
	set      *rrset.RRset
	tag      Tag
	expires  time.Time
	negative bool // true for NXDOMAIN/NXRRSET placeholders carrying only a SOA
}

// Cache is a credibility-aware, TTL-bounded LRU of RRsets.
type Cache struct {
	mu            sync.Mutex
	entries       *lru.Cache[typeKey, *entry]
	maxPositive   time.Duration
	maxNegative   time.Duration
	negativeTTLFn func(soa *rrset.RRset) time.Duration
}

// Option configures a Cache at construction time.
type Option func(*Cache)

// WithMaxTTLs overrides DefaultMaxPositiveTTL/DefaultMaxNegativeTTL.
func WithMaxTTLs(positive, negative time.Duration) Option {
	return func(c *Cache) {
		c.maxPositive = positive
		c.maxNegative = negative
	}
}

// New builds a Cache holding at most maxEntries distinct (name,type) keys.
func New(maxEntries int, opts ...Option) (*Cache, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	l, err := lru.New[typeKey, *entry](maxEntries)
	if err != nil {
		return nil, err
	}
	c := &Cache{
		entries:     l,
		maxPositive: DefaultMaxPositiveTTL,
		maxNegative: DefaultMaxNegativeTTL,
	}
	c.negativeTTLFn = negativeTTLFromSOA
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CredibilityFor derives the credibility of a record found in section of a
// response whose header carries authoritative (aa bool), per spec.md §4.6's
// ladder: records from the authority/additional sections of a non-AA reply
// rank lowest, answers from an AA reply rank highest short of glue/hints.
func CredibilityFor(section Section, aa bool) Credibility {
	switch section {
	case AdditionalSection:
		return Credibility(Additional)
	case Authority:
		if aa {
			return AuthAuthority
		}
		return NonauthAuthority
	case Answer:
		if aa {
			return AuthAnswer
		}
		return NonauthAnswer
	default:
		return Credibility(Additional)
	}
}

// Section identifies the message section a cached record came from.
type Section uint8

const (
	Answer Section = iota
	Authority
	AdditionalSection
)

// Put stores set under the given credibility, refusing to replace an
// existing entry of equal or higher credibility with a lower one (spec.md
// §4.6's monotonicity rule), and bounding the TTL to the configured maximum.
func (c *Cache) Put(set *rrset.RRset, cred Credibility, tag Tag) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := typeKey{name: set.Owner, rtype: set.Type}
	if existing, ok := c.entries.Get(key); ok {
		if existing.cred > cred && time.Now().Before(existing.expires) {
			return
		}
	}

	ttl := time.Duration(set.TTL()) * time.Second
	maxTTL := c.maxPositive
	if tag == NXDOMAIN || tag == NXRRSET {
		maxTTL = c.maxNegative
	}
	if ttl <= 0 || ttl > maxTTL {
		ttl = maxTTL
	}

	c.entries.Add(key, &entry{
		cred:    cred,
		set:     set,
		tag:     tag,
		expires: time.Now().Add(ttl),
	})
}

// PutMessage derives and stores cache entries for every RRset in an
// incoming reply, crediting each section per CredibilityFor, per spec.md
// §4.6.
func (c *Cache) PutMessage(msg *dns.Msg) error {
	if err := c.putSection(msg.Answer, Answer, msg.Authoritative); err != nil {
		return err
	}
	if err := c.putSection(msg.Ns, Authority, msg.Authoritative); err != nil {
		return err
	}
	return c.putSection(msg.Extra, AdditionalSection, msg.Authoritative)
}

// putSection groups records (and any RRSIGs covering them, keyed by the
// covered type rather than dns.TypeRRSIG itself) into per-(owner,type,class)
// RRsets and stores each, so a later Lookup returns an RRset carrying its
// signatures and can be re-verified rather than only re-served.
func (c *Cache) putSection(records []dns.RR, sec Section, aa bool) error {
	type group struct {
		owner string
		rtype uint16
		class uint16
	}

	seen := make(map[group]bool)
	var order []group
	members := make(map[group][]dns.RR)
	sigs := make(map[group][]*dns.RRSIG)

	mark := func(g group) {
		if !seen[g] {
			seen[g] = true
			order = append(order, g)
		}
	}

	for _, r := range records {
		h := r.Header()
		if h.Rrtype == dns.TypeOPT {
			continue
		}
		if sig, ok := r.(*dns.RRSIG); ok {
			g := group{owner: dns.CanonicalName(h.Name), rtype: sig.TypeCovered, class: h.Class}
			mark(g)
			sigs[g] = append(sigs[g], sig)
			continue
		}
		g := group{owner: dns.CanonicalName(h.Name), rtype: h.Rrtype, class: h.Class}
		mark(g)
		members[g] = append(members[g], r)
	}

	cred := CredibilityFor(sec, aa)
	for _, g := range order {
		if len(members[g]) == 0 {
			continue
		}
		set := rrset.New(g.owner, g.rtype, g.class)
		for _, r := range members[g] {
			if err := set.Add(r); err != nil {
				return err
			}
		}
		for _, sig := range sigs[g] {
			if err := set.Add(sig); err != nil {
				return err
			}
		}
		c.Put(set, cred, SUCCESSFUL)
	}
	return nil
}

// PutNegative records an NXDOMAIN/NXRRSET placeholder keyed by (qname,
// qtype), deriving its TTL from the zone's SOA MINIMUM per RFC 2308, bounded
// by the cache's negative maximum (DefaultMaxNegativeTTL unless WithMaxTTLs
// overrides it).
func (c *Cache) PutNegative(qname string, qtype uint16, soa *rrset.RRset, tag Tag, cred Credibility) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := typeKey{name: dns.CanonicalName(qname), rtype: qtype}
	if existing, ok := c.entries.Get(key); ok {
		if existing.cred > cred && time.Now().Before(existing.expires) {
			return
		}
	}

	ttl := c.negativeTTLFn(soa)
	if ttl > c.maxNegative {
		ttl = c.maxNegative
	}
	c.entries.Add(key, &entry{
		cred:     cred,
		set:      soa,
		tag:      tag,
		expires:  time.Now().Add(ttl),
		negative: true,
	})
}

// negativeTTLFromSOA returns min(SOA.Minimum, SOA TTL) per RFC 2308 §5.
func negativeTTLFromSOA(soa *rrset.RRset) time.Duration {
	if soa == nil {
		return 0
	}
	r, ok := soa.First()
	if !ok {
		return 0
	}
	s, ok := r.(*dns.SOA)
	if !ok {
		return 0
	}
	ttl := s.Hdr.Ttl
	if s.Minttl < ttl {
		ttl = s.Minttl
	}
	return time.Duration(ttl) * time.Second
}

// Lookup returns the cached response for (name,type) at minimum credibility
// minCred, per spec.md §4.6: an entry below minCred or past expiry is
// treated as a miss.
func (c *Cache) Lookup(name string, qtype uint16, minCred Credibility) Response {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := typeKey{name: dns.CanonicalName(name), rtype: qtype}
	e, ok := c.entries.Get(key)
	if !ok {
		return Response{Tag: Unknown}
	}
	if time.Now().After(e.expires) {
		c.entries.Remove(key)
		return Response{Tag: Unknown}
	}
	if e.cred < minCred {
		return Response{Tag: Unknown}
	}
	return Response{Tag: e.tag, RRsets: []*rrset.RRset{e.set}}
}

// Remove evicts the entry for (name,type), if any.
func (c *Cache) Remove(name string, qtype uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Remove(typeKey{name: dns.CanonicalName(name), rtype: qtype})
}

// Len reports the number of distinct (name,type) entries currently cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}
