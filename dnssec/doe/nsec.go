package doe

import (
	"slices"

	"github.com/miekg/dns"
)

// PerformQNameDoesNotExistProof proves that qname itself has no owner
// name in the zone and that no wildcard beneath the zone covers it
// either (RFC 4035 §3.1.3.1/§5.4, the NXDOMAIN case).
func (doe *DenialOfExistenceNSEC) PerformQNameDoesNotExistProof(qname string) bool {
	return !doe.Empty() && doe.ownerNameCovered(qname) && doe.wildcardCovered(qname)
}

// PerformExpandedWildcardProof proves qname is covered (so does not
// exist as a literal owner) while its synthesising wildcard is not
// covered, i.e. some wildcard could legitimately answer for it.
func (doe *DenialOfExistenceNSEC) PerformExpandedWildcardProof(qname string) bool {
	return !doe.Empty() && doe.ownerNameCovered(qname) && !doe.wildcardCovered(qname)
}

// ownerNameCovered reports whether some NSEC in doe.records has qname
// strictly between its owner name and its Next Domain name.
//
// https://datatracker.ietf.org/doc/html/rfc3845#section-2.1.1
// The Next Domain name of the last NSEC in a zone is the zone apex
// itself (the owner of the SOA), which closes the ring.
func (doe *DenialOfExistenceNSEC) ownerNameCovered(qname string) bool {
	qname = dns.CanonicalName(qname)

	for _, nsec := range doe.records {
		afterOwner := ownerOrder(nsec.Header().Name, qname) < 0
		beforeNext := dns.CanonicalName(nsec.NextDomain) == doe.zone || ownerOrder(qname, nsec.NextDomain) < 0
		if afterOwner && beforeNext {
			return true
		}
	}
	return false
}

// wildcardCovered reports whether some NSEC covers the wildcard name
// that would synthesise an answer for qname.
func (doe *DenialOfExistenceNSEC) wildcardCovered(qname string) bool {
	wildcard := wildcardName(dns.CanonicalName(qname))

	for _, nsec := range doe.records {
		afterOwner := ownerOrder(nsec.Header().Name, wildcard) < 0
		beforeNext := dns.CanonicalName(nsec.NextDomain) == doe.zone || ownerOrder(wildcard, nsec.NextDomain) < 0
		if afterOwner && beforeNext {
			return true
		}
	}
	return false
}

// TypeBitMapContainsAnyOf reports whether an NSEC owned by name is
// present (nameSeen) and, if so, whether its type bitmap sets any of
// types (typeSeen) — used to prove NODATA or deny a CNAME's presence.
func (doe *DenialOfExistenceNSEC) TypeBitMapContainsAnyOf(name string, types []uint16) (nameSeen, typeSeen bool) {
	for _, nsec := range doe.records {
		if name != dns.CanonicalName(nsec.Header().Name) {
			continue
		}
		nameSeen = true
		for _, t := range types {
			if slices.Contains(nsec.TypeBitMap, t) {
				return nameSeen, true
			}
		}
	}
	return nameSeen, false
}
