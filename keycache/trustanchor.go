// Package keycache implements the validated-key cache and trust-anchor
// store of spec.md §4.7. The trust-anchor loader follows the teacher's
// buildRootServerPool (resolver.go), which walks a dns.ZoneParser over an
// embedded root zone; here the parser walks an embedded/loaded trust-anchor
// file instead of a hints zone. The root seed itself comes from
// nsmithuk/dnssec-root-anchors-go the way dnssec/config.go seeds
// RootTrustAnchors, rather than parsing IANA's root-anchors.xml ourselves.
package keycache

import (
	"fmt"
	"io"
	"strings"

	"github.com/miekg/dns"
	"github.com/nsmithuk/dnssec-root-anchors-go/anchors"
)

// TrustAnchor groups the DS (or, rarely, DNSKEY) records configured as a
// starting point for chain-of-trust validation at a given owner name.
type TrustAnchor struct {
	Owner string
	Class uint16
	DS    []*dns.DS
	Keys  []*dns.DNSKEY
}

// TrustAnchorStore is a small, static (post-load) set of trust anchors
// indexed by owner name, supporting longest-suffix lookup so a negative
// trust anchor or an internal zone's anchor can override the root's.
type TrustAnchorStore struct {
	anchors map[string]*TrustAnchor
}

// NewTrustAnchorStore builds an empty store.
func NewTrustAnchorStore() *TrustAnchorStore {
	return &TrustAnchorStore{anchors: make(map[string]*TrustAnchor)}
}

// Default builds a TrustAnchorStore seeded with the root zone's currently
// valid DS records from nsmithuk/dnssec-root-anchors-go, per spec.md §4.7's
// "must ship with a usable root trust anchor by default" requirement.
func Default() *TrustAnchorStore {
	s := NewTrustAnchorStore()
	s.Add(&TrustAnchor{Owner: ".", Class: dns.ClassINET, DS: anchors.GetValid()})
	return s
}

// Add installs or replaces the trust anchor at ta.Owner.
func (s *TrustAnchorStore) Add(ta *TrustAnchor) {
	s.anchors[dns.CanonicalName(ta.Owner)] = ta
}

// Find returns the trust anchor governing name, walking up through ancestor
// names until one is configured, per spec.md §4.7's longest-suffix match.
func (s *TrustAnchorStore) Find(name string, class uint16) (*TrustAnchor, bool) {
	name = dns.CanonicalName(name)
	for {
		if ta, ok := s.anchors[name]; ok && ta.Class == class {
			return ta, true
		}
		if name == "." {
			return nil, false
		}
		name = stripLeftmostLabel(name)
	}
}

func stripLeftmostLabel(name string) string {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return name[i+1:]
		}
	}
	return "."
}

// LoadZoneFile parses a BIND-style zone file of DS/DNSKEY records (as
// published e.g. by a registry operator for a non-root anchor) into trust
// anchors grouped by owner name, using dns.ZoneParser exactly as the
// teacher's buildRootServerPool parses the embedded root hints.
func LoadZoneFile(r io.Reader, origin string) ([]*TrustAnchor, error) {
	zp := dns.NewZoneParser(r, origin, "")
	byOwner := make(map[string]*TrustAnchor)
	var order []string

	for rr, ok := zp.Next(); ok; rr, ok = zp.Next() {
		if t := rr.Header().Rrtype; t != dns.TypeDS && t != dns.TypeDNSKEY {
			continue
		}
		owner := dns.CanonicalName(rr.Header().Name)
		ta, seen := byOwner[owner]
		if !seen {
			ta = &TrustAnchor{Owner: owner, Class: rr.Header().Class}
			byOwner[owner] = ta
			order = append(order, owner)
		}
		switch v := rr.(type) {
		case *dns.DS:
			ta.DS = append(ta.DS, v)
		case *dns.DNSKEY:
			ta.Keys = append(ta.Keys, v)
		}
	}
	if err := zp.Err(); err != nil {
		return nil, fmt.Errorf("keycache: parsing trust anchor file: %w", err)
	}

	out := make([]*TrustAnchor, 0, len(order))
	for _, owner := range order {
		out = append(out, byOwner[owner])
	}
	return out, nil
}

// LoadString is LoadZoneFile convenience wrapper over a string body.
func LoadString(body, origin string) ([]*TrustAnchor, error) {
	return LoadZoneFile(strings.NewReader(body), origin)
}
