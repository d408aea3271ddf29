// This file implements the synchronous chain-of-trust walk of spec.md
// §4.9, generalising the teacher's Authenticator.process dispatch (which
// drove the same validateDelegatingResponse/validatePositiveResponse/
// validateNegativeResponse split from an async queue+WaitGroup) into plain
// functions a Resolver can call directly as it descends one zone at a time.
package dnssec

import (
	"fmt"

	"github.com/miekg/dns"

	"github.com/hadrianlabs/dnsval/dnssec/doe"
	"github.com/hadrianlabs/dnsval/rrset"
)

// ValidateDNSKEYs authenticates zone's DNSKEY RRset against itself (it must
// contain a key-signing key that both signs the set and matches one of
// parentDS), per RFC 4035 §5.2. If parentDS is empty the zone is
// unsignable from here down and the caller should treat it as Insecure
// once a denial-of-existence proof for the missing DS is in hand.
func ValidateDNSKEYs(zone string, dnskeySet *rrset.RRset, parentDS []*dns.DS) (*rrset.SRRset, AuthenticationResult, error) {
	if len(parentDS) == 0 {
		return nil, Insecure, ErrNoDSRecords
	}

	dnskeys := extractRecords[*dns.DNSKEY](dnskeySet.Records())
	if len(dnskeys) == 0 {
		return nil, Bogus, ErrKeysNotFound
	}

	ksks := matchingKeySigningKeys(dnskeys, parentDS)
	if len(ksks) == 0 {
		return nil, Bogus, ErrKeySigningKeysNotFound
	}

	records := make([]dns.RR, 0, len(dnskeySet.Records())+len(dnskeySet.Sigs()))
	records = append(records, dnskeySet.Records()...)
	for _, s := range dnskeySet.Sigs() {
		records = append(records, s)
	}

	sigs, err := authenticate(zone, records, ksks, answerSection)
	if err != nil {
		return nil, Bogus, err
	}
	if verr := sigs.Verify(); verr != nil {
		return nil, Bogus, verr
	}

	out := rrset.NewSRRset(dnskeySet)
	out.Status = rrset.Secure
	out.SignerName = dns.CanonicalName(zone)
	return out, Secure, nil
}

// matchingKeySigningKeys returns the DNSKEYs whose digest, under one of
// parentDS's algorithms, equals that DS record's digest.
func matchingKeySigningKeys(dnskeys []*dns.DNSKEY, parentDS []*dns.DS) []*dns.DNSKEY {
	var out []*dns.DNSKEY
	for _, key := range dnskeys {
		for _, ds := range parentDS {
			if key.KeyTag() != int(ds.KeyTag) {
				continue
			}
			candidate := key.ToDS(ds.DigestType)
			if candidate == nil {
				continue
			}
			if candidate.Digest == ds.Digest && candidate.Algorithm == ds.Algorithm {
				out = append(out, key)
				break
			}
		}
	}
	return out
}

// ValidateRRset authenticates set using zone's validated DNSKEY set,
// returning Secure if at least one covering RRSIG (or all of them, under
// RequireAllSignaturesValid) verifies.
func ValidateRRset(zone string, set *rrset.RRset, dnskeys []*dns.DNSKEY) (*rrset.SRRset, AuthenticationResult, error) {
	records := append(append([]dns.RR{}, set.Records()...), sigsAsRR(set.Sigs())...)

	sigs, err := authenticate(zone, records, dnskeys, answerSection)
	if err != nil {
		return nil, Bogus, err
	}
	if verr := sigs.Verify(); verr != nil {
		return nil, Bogus, verr
	}

	out := rrset.NewSRRset(set)
	out.Status = rrset.Secure
	if len(sigs) > 0 {
		out.SignerName = dns.CanonicalName(sigs[0].rrsig.SignerName)
	}
	return out, Secure, nil
}

func sigsAsRR(sigs []*dns.RRSIG) []dns.RR {
	out := make([]dns.RR, len(sigs))
	for i, s := range sigs {
		out[i] = s
	}
	return out
}

// ValidateDelegation checks a referral's DS RRset (or its absence, proven
// by NSEC/NSEC3 denial of existence) against the parent zone's DNSKEYs,
// deciding whether the child zone is Secure, Insecure (proven unsigned) or
// Bogus, per spec.md §4.9.
func ValidateDelegation(parentZone string, dsSet *rrset.RRset, parentKeys []*dns.DNSKEY, doeNSEC *doe.DenialOfExistenceNSEC, doeNSEC3 *doe.DenialOfExistenceNSEC3, childName string) (AuthenticationResult, DenialOfExistenceState, error) {
	if dsSet != nil && dsSet.Len() > 0 {
		_, state, err := ValidateRRset(parentZone, dsSet, parentKeys)
		if state != Secure {
			return Bogus, NotFound, err
		}
		return Secure, NotFound, nil
	}

	// No DS records: the child must be proven unsigned via NSEC/NSEC3
	// denial of existence for the DS type at childName.
	if doeNSEC != nil && !doeNSEC.Empty() {
		if seen, typeSeen := doeNSEC.TypeBitMapContainsAnyOf(childName, []uint16{dns.TypeDS}); seen && !typeSeen {
			return Insecure, NsecMissingDS, nil
		}
	}
	if doeNSEC3 != nil && !doeNSEC3.Empty() {
		optedOut, closest, nextCloser, _ := doeNSEC3.PerformClosestEncloserProof(childName)
		if closest && nextCloser {
			if optedOut {
				return Insecure, Nsec3OptOut, nil
			}
			return Insecure, Nsec3MissingDS, nil
		}
	}

	return Bogus, NotFound, ErrBogusDoeRecordsNotFound
}

// ValidatePositive authenticates an answer's RRset against its zone's
// validated DNSKEYs, the POSITIVE/CNAME/ANY case of spec.md §4.8.
func ValidatePositive(zone string, answer *rrset.RRset, dnskeys []*dns.DNSKEY) (*rrset.SRRset, AuthenticationResult, error) {
	return ValidateRRset(zone, answer, dnskeys)
}

// ValidateNegative proves the NODATA/NXDOMAIN case of spec.md §4.8 via an
// authenticated SOA plus NSEC/NSEC3 denial-of-existence records.
func ValidateNegative(zone string, soa *rrset.RRset, dnskeys []*dns.DNSKEY, responseType ResponseType, qname string, qtype uint16, doeNSEC *doe.DenialOfExistenceNSEC, doeNSEC3 *doe.DenialOfExistenceNSEC3) (AuthenticationResult, DenialOfExistenceState, error) {
	if _, state, err := ValidateRRset(zone, soa, dnskeys); state != Secure {
		return Bogus, NotFound, err
	}

	switch responseType {
	case TypeNameError, TypeCNAMENameError:
		if doeNSEC != nil && !doeNSEC.Empty() {
			if doeNSEC.PerformQNameDoesNotExistProof(qname) {
				return Secure, NsecNxDomain, nil
			}
		}
		if doeNSEC3 != nil && !doeNSEC3.Empty() {
			_, closest, nextCloser, wildcard := doeNSEC3.PerformClosestEncloserProof(qname)
			if closest && nextCloser && wildcard {
				return Secure, Nsec3NxDomain, nil
			}
		}
		return Bogus, NotFound, fmt.Errorf("%w: no nxdomain proof for %s", ErrBogusDoeRecordsNotFound, qname)

	case TypeNoData, TypeCNAMENoData:
		if doeNSEC != nil && !doeNSEC.Empty() {
			if seen, typeSeen := doeNSEC.TypeBitMapContainsAnyOf(qname, []uint16{qtype}); seen && !typeSeen {
				return Secure, NsecNoData, nil
			}
		}
		if doeNSEC3 != nil && !doeNSEC3.Empty() {
			if seen, typeSeen := doeNSEC3.TypeBitMapContainsAnyOf(qname, []uint16{qtype}); seen && !typeSeen {
				return Secure, Nsec3NoData, nil
			}
		}
		return Bogus, NotFound, fmt.Errorf("%w: no nodata proof for %s/%d", ErrBogusDoeRecordsNotFound, qname, qtype)
	}

	return Bogus, NotFound, ErrFailsafeResponse
}
