// Package rrset implements the Record/RRset/SRRset data model of spec.md
// §3-§4.3. Records are not re-modelled as a parallel type hierarchy: the
// teacher and the rest of the retrieval pack treat dns.RR (already a tagged
// variant over typed structs, via dns.RR_Header for the shared fields) as
// the wire codec's record type, so RRset wraps []dns.RR the way the
// teacher's extractRecords[T]/extractRecordsOfType helpers do, generalised
// into named methods on a set type.
package rrset

import (
	"errors"
	"fmt"
	"sort"

	"github.com/miekg/dns"
)

var (
	ErrEmptySet       = errors.New("rrset: set has no records")
	ErrOwnerMismatch  = errors.New("rrset: record owner/type/class does not match the set")
	ErrWrongTypeOwner = errors.New("rrset: rrsig does not cover this set's type")
)

// RRset groups records sharing (owner, type, class) per spec.md §3, plus
// any RRSIG records covering them.
type RRset struct {
	Owner      string // canonical (dns.CanonicalName) owner name
	Type       uint16
	Class      uint16
	records    []dns.RR
	signatures []*dns.RRSIG
}

// New constructs an empty RRset for the given (owner,type,class).
func New(owner string, rtype, class uint16) *RRset {
	return &RRset{Owner: dns.CanonicalName(owner), Type: rtype, Class: class}
}

// FromRecords builds an RRset from an existing slice sharing the same
// owner/type/class; it returns ErrOwnerMismatch if any record disagrees.
func FromRecords(records []dns.RR) (*RRset, error) {
	if len(records) == 0 {
		return nil, ErrEmptySet
	}
	h := records[0].Header()
	set := New(h.Name, h.Rrtype, h.Class)
	for _, r := range records {
		if err := set.Add(r); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// Add appends r to the set (or, if r is an RRSIG covering this set's type,
// to its signatures), enforcing the owner/type/class invariant.
func (s *RRset) Add(r dns.RR) error {
	h := r.Header()

	if sig, ok := r.(*dns.RRSIG); ok {
		if dns.CanonicalName(h.Name) != s.Owner || sig.TypeCovered != s.Type {
			return fmt.Errorf("%w: owner=%s covered=%d, set is %s/%d", ErrWrongTypeOwner, h.Name, sig.TypeCovered, s.Owner, s.Type)
		}
		s.signatures = append(s.signatures, sig)
		return nil
	}

	if dns.CanonicalName(h.Name) != s.Owner || h.Rrtype != s.Type || h.Class != s.Class {
		return fmt.Errorf("%w: got %s/%d/%d, set is %s/%d/%d", ErrOwnerMismatch, h.Name, h.Rrtype, h.Class, s.Owner, s.Type, s.Class)
	}
	s.records = append(s.records, r)
	return nil
}

// Records returns the member records (excluding RRSIGs).
func (s *RRset) Records() []dns.RR { return s.records }

// Sigs returns the RRSIG subset covering this set, per spec.md §4.3.
func (s *RRset) Sigs() []*dns.RRSIG { return s.signatures }

// Len reports the number of member records.
func (s *RRset) Len() int { return len(s.records) }

// First returns the first member record; ok is false for an empty set, per
// spec.md §4.3 ("first-record accessor is defined iff non-empty").
func (s *RRset) First() (dns.RR, bool) {
	if len(s.records) == 0 {
		return nil, false
	}
	return s.records[0], true
}

// TTL is the minimum TTL across member records, per spec.md §3.
func (s *RRset) TTL() uint32 {
	if len(s.records) == 0 {
		return 0
	}
	ttl := s.records[0].Header().Ttl
	for _, r := range s.records[1:] {
		if t := r.Header().Ttl; t < ttl {
			ttl = t
		}
	}
	return ttl
}

// SameRRset implements spec.md §4.3's sameRRset relation.
func SameRRset(a, b *RRset) bool {
	return a.Type == b.Type && a.Class == b.Class && a.Owner == b.Owner
}

// Canonical returns the member records in RFC 4034 §6.3 canonical order
// (sorted by canonical rdata, owner lowercased, TTL fixed to ttl), ready to
// be fed into dns.RRSIG.Verify or hashed for a cache key.
func (s *RRset) Canonical(ttl uint32) []dns.RR {
	out := make([]dns.RR, len(s.records))
	for i, r := range s.records {
		c := dns.Copy(r)
		h := c.Header()
		h.Name = dns.CanonicalName(h.Name)
		h.Ttl = ttl
		out[i] = c
	}
	sort.Slice(out, func(i, j int) bool {
		return canonicalRdataLess(out[i], out[j])
	})
	return out
}

// canonicalRdataLess orders two records of the same RRset by canonical wire
// rdata per RFC 4034 §6.3.
func canonicalRdataLess(a, b dns.RR) bool {
	wa := rdataWire(a)
	wb := rdataWire(b)
	for i := 0; i < len(wa) && i < len(wb); i++ {
		if wa[i] != wb[i] {
			return wa[i] < wb[i]
		}
	}
	return len(wa) < len(wb)
}

// rdataWire packs r and strips everything up to and including the 2-byte
// RDLENGTH field, leaving only the rdata for canonical comparison.
func rdataWire(r dns.RR) []byte {
	buf := make([]byte, dns.Len(r)+1)
	off, err := dns.PackRR(r, buf, 0, nil, false)
	if err != nil {
		return nil
	}
	packed := buf[:off]
	rdlen := int(r.Header().Rdlength)
	if rdlen <= 0 || rdlen > len(packed) {
		return packed
	}
	return packed[len(packed)-rdlen:]
}
