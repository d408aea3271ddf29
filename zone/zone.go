// Package zone implements the in-memory zone authority of spec.md §4.5: a
// name-indexed, typed RRset store supporting wildcard and DNAME-aware
// lookups and AXFR-ordered iteration. The name-indexed map is backed by
// orcaman/concurrent-map the way johanix/tdns's cache.RRsetCacheT keys its
// ZoneMap, since a Resolver's validation jobs may read a Zone concurrently
// with another goroutine priming it (spec.md §5).
package zone

import (
	"errors"
	"fmt"
	"sort"

	"github.com/miekg/dns"
	cmap "github.com/orcaman/concurrent-map/v2"

	dnsname "github.com/hadrianlabs/dnsval/name"
	"github.com/hadrianlabs/dnsval/rrset"
)

var (
	ErrNoSOA         = errors.New("zone: apex SOA record is required")
	ErrMultipleSOA   = errors.New("zone: apex must have exactly one SOA record")
	ErrNoApexNS      = errors.New("zone: apex NS records are required")
	ErrOutsideZone   = errors.New("zone: owner name is not within the zone's subdomain")
	ErrRelativeOwner = errors.New("zone: owner names must be absolute")
)

// Tag classifies the outcome of a Zone.FindRecords lookup, per spec.md §4.5.
type Tag uint8

const (
	NXDOMAIN Tag = iota
	SUCCESSFUL
	CNAME
	DNAME
	DELEGATION
	NXRRSET
)

func (t Tag) String() string {
	switch t {
	case SUCCESSFUL:
		return "SUCCESSFUL"
	case CNAME:
		return "CNAME"
	case DNAME:
		return "DNAME"
	case DELEGATION:
		return "DELEGATION"
	case NXRRSET:
		return "NXRRSET"
	default:
		return "NXDOMAIN"
	}
}

// Response is the tagged result of a zone lookup.
type Response struct {
	Tag    Tag
	RRsets []*rrset.RRset
}

// bucket is always a list per spec.md §9 ("model as always-a-list; the
// single-entry optimization is an implementation detail"), keyed by type.
type bucket map[uint16][]*rrset.RRset

// Zone is a name-indexed authority for a single DNS zone.
type Zone struct {
	apex    dnsname.Name
	class   uint16
	names   cmap.ConcurrentMap[string, bucket]
	hasWild bool
}

// New constructs a Zone rooted at apex. The caller must add the apex SOA
// and NS RRsets before the zone is usable; Validate enforces the
// construction invariants of spec.md §4.5.
func New(apex dnsname.Name, class uint16) (*Zone, error) {
	if err := apex.RequireAbsolute(); err != nil {
		return nil, err
	}
	return &Zone{
		apex:  apex,
		class: class,
		names: cmap.New[bucket](),
	}, nil
}

func (z *Zone) Name() dnsname.Name { return z.apex }

// AddRRset inserts set into the zone, after checking the owner lies within
// the zone and updating hasWild if the owner contains a wildcard label.
func (z *Zone) AddRRset(set *rrset.RRset) error {
	owner, err := dnsname.New(set.Owner)
	if err != nil {
		return err
	}
	if err := owner.RequireAbsolute(); err != nil {
		return fmt.Errorf("%w: %s", ErrRelativeOwner, set.Owner)
	}
	if !owner.Subdomain(z.apex) {
		return fmt.Errorf("%w: %s is not under %s", ErrOutsideZone, set.Owner, z.apex)
	}

	if label, ok := owner.Label(0); ok && label == "*" {
		z.hasWild = true
	}

	b, _ := z.names.Get(set.Owner)
	if b == nil {
		b = make(bucket)
	}
	b[set.Type] = append(b[set.Type], set)
	z.names.Set(set.Owner, b)
	return nil
}

// RemoveRRset removes the set matching (owner,type) exactly.
func (z *Zone) RemoveRRset(owner string, rtype uint16) {
	owner = dns.CanonicalName(owner)
	b, ok := z.names.Get(owner)
	if !ok {
		return
	}
	delete(b, rtype)
	if len(b) == 0 {
		z.names.Remove(owner)
	} else {
		z.names.Set(owner, b)
	}
}

// Validate checks the apex SOA/NS invariants of spec.md §4.5.
func (z *Zone) Validate() error {
	b, ok := z.names.Get(z.apex.String())
	if !ok {
		return ErrNoSOA
	}
	soas := b[dns.TypeSOA]
	if len(soas) == 0 {
		return ErrNoSOA
	}
	if len(soas) != 1 || soas[0].Len() != 1 {
		return ErrMultipleSOA
	}
	if len(b[dns.TypeNS]) == 0 {
		return ErrNoApexNS
	}
	return nil
}

// FindRecords implements the walk-from-apex algorithm of spec.md §4.5.
func (z *Zone) FindRecords(qname dnsname.Name, qtype uint16) Response {
	if !qname.Subdomain(z.apex) {
		return Response{Tag: NXDOMAIN}
	}

	// Walk from the apex down to qname, checking for delegations/DNAMEs on
	// every ancestor, then the exact node.
	labelsToWalk := qname.Labels() - z.apex.Labels()
	current := z.apex

	for i := 0; i <= labelsToWalk; i++ {
		var err error
		if i == labelsToWalk {
			current = qname
		} else {
			current, err = ancestorOf(qname, z.apex.Labels()+i-1)
			if err != nil {
				return Response{Tag: NXDOMAIN}
			}
		}

		b, ok := z.names.Get(current.String())
		if !ok {
			continue
		}

		exact := current.Equal(qname)

		if !exact || !current.Equal(z.apex) {
			if ns, ok := b[dns.TypeNS]; ok && !current.Equal(z.apex) {
				return Response{Tag: DELEGATION, RRsets: ns}
			}
		}
		if !exact {
			if dn, ok := b[dns.TypeDNAME]; ok {
				return Response{Tag: DNAME, RRsets: dn}
			}
		}

		if exact {
			if qtype == dns.TypeANY {
				all := make([]*rrset.RRset, 0, len(b))
				for _, sets := range b {
					all = append(all, sets...)
				}
				return Response{Tag: SUCCESSFUL, RRsets: all}
			}
			if sets, ok := b[qtype]; ok {
				return Response{Tag: SUCCESSFUL, RRsets: sets}
			}
			if cn, ok := b[dns.TypeCNAME]; ok {
				return Response{Tag: CNAME, RRsets: cn}
			}
			// Name exists but not this type: NXRRSET, unless a wildcard
			// might still answer (handled below after the walk).
			if !z.hasWild {
				return Response{Tag: NXRRSET}
			}
			break
		}
	}

	if z.hasWild {
		if resp, ok := z.matchWildcard(qname, qtype); ok {
			return resp
		}
	}

	// The exact name existed (we broke out above) but nothing matched and
	// no wildcard substituted; that's NODATA, not NXDOMAIN.
	if _, ok := z.names.Get(qname.String()); ok {
		return Response{Tag: NXRRSET}
	}

	return Response{Tag: NXDOMAIN}
}

// ancestorOf returns the ancestor of qname made of its rightmost
// labelsBelowRoot non-root labels plus the root (labelsBelowRoot+1 labels in
// all), for the ancestor-label walk spec.md §4.5 describes. The count is
// taken from the root, not from the zone apex.
func ancestorOf(qname dnsname.Name, labelsBelowRoot int) (dnsname.Name, error) {
	total := qname.Labels()
	drop := total - labelsBelowRoot - 1 // number of leading labels to remove, leaving labelsBelowRoot+1 (incl. root)
	if drop < 0 {
		drop = 0
	}
	s := qname.String()
	for i := 0; i < drop; i++ {
		idx := indexOfNextLabel(s)
		if idx < 0 {
			break
		}
		s = s[idx:]
	}
	return dnsname.New(s)
}

func indexOfNextLabel(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return i + 1
		}
	}
	return -1
}

// matchWildcard expands "*.<ancestor>" RRsets per spec.md §4.5, synthesising
// records owned by qname rather than by the wildcard owner itself.
func (z *Zone) matchWildcard(qname dnsname.Name, qtype uint16) (Response, bool) {
	total := qname.Labels()
	for drop := 1; drop < total; drop++ {
		suffix, err := ancestorOf(qname, total-drop-1)
		if err != nil {
			continue
		}
		wildName, err := dnsname.Concatenate(dnsname.MustNew("*"), suffix)
		if err != nil {
			continue
		}
		b, ok := z.names.Get(wildName.String())
		if !ok {
			continue
		}
		sets, ok := b[qtype]
		if !ok {
			continue
		}
		synthesised := make([]*rrset.RRset, 0, len(sets))
		for _, s := range sets {
			ns := rrset.New(qname.String(), s.Type, s.Class)
			for _, r := range s.Records() {
				c := dns.Copy(r)
				c.Header().Name = qname.String()
				_ = ns.Add(c)
			}
			synthesised = append(synthesised, ns)
		}
		return Response{Tag: SUCCESSFUL, RRsets: synthesised}, true
	}
	return Response{}, false
}

// AXFRRecords returns the zone's records in AXFR order per spec.md §4.5:
// SOA, apex NS, other apex RRsets, then remaining names (map-iteration
// order), SOA repeated at the end.
func (z *Zone) AXFRRecords() []dns.RR {
	var out []dns.RR

	apexBucket, _ := z.names.Get(z.apex.String())
	soa := apexBucket[dns.TypeSOA]
	if len(soa) == 1 {
		out = append(out, soa[0].Records()...)
	}
	if ns, ok := apexBucket[dns.TypeNS]; ok {
		for _, s := range ns {
			out = append(out, s.Records()...)
		}
	}
	types := sortedTypes(apexBucket)
	for _, t := range types {
		if t == dns.TypeSOA || t == dns.TypeNS {
			continue
		}
		for _, s := range apexBucket[t] {
			out = append(out, s.Records()...)
		}
	}

	for name, b := range z.names.Items() {
		if name == z.apex.String() {
			continue
		}
		for _, t := range sortedTypes(b) {
			for _, s := range b[t] {
				out = append(out, s.Records()...)
			}
		}
	}

	if len(soa) == 1 {
		out = append(out, soa[0].Records()...)
	}
	return out
}

func sortedTypes(b bucket) []uint16 {
	types := make([]uint16, 0, len(b))
	for t := range b {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
