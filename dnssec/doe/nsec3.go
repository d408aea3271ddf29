package doe

import (
	"slices"

	"github.com/miekg/dns"
)

// PerformClosestEncloserProof runs the RFC 5155 §8.3 closest-encloser
// proof for name: it locates the longest ancestor of name that has a
// matching NSEC3, then proves the next-closer name beneath it is
// covered (nextCloserNameProof) and that no wildcard at the closest
// encloser answers instead (wildcardProof). optedOut reports whether
// the covering NSEC3 opts out insecure delegations (RFC 5155 §6).
func (doe *DenialOfExistenceNSEC3) PerformClosestEncloserProof(name string) (optedOut, closestEncloserProof, nextCloserNameProof, wildcardProof bool) {
	if doe.Empty() {
		return
	}

	closestEncloser, nextCloserName, ok := doe.FindClosestEncloser(name)
	if !ok {
		return
	}
	closestEncloserProof = true

	wildcardProof = doe.wildcardCovered(closestEncloser)
	optedOut, nextCloserNameProof = doe.nextCloserCovered(nextCloserName)
	return
}

// PerformExpandedWildcardProof validates a wildcard-synthesised answer
// by proving the QNAME itself does not exist while the wildcard's
// immediate ancestor is genuinely the closest encloser (RFC 5155
// §7.2.6/§8.8): the "next closer" name of that ancestor must be
// covered, and no NSEC3 may match or cover the wildcard itself.
func (doe *DenialOfExistenceNSEC3) PerformExpandedWildcardProof(wildcardAnswerSignatureName string, wildcardAnswerSignatureNameLabels uint8) bool {
	idx := dns.Split(wildcardAnswerSignatureName)
	closestEncloserIdx := len(idx) - int(wildcardAnswerSignatureNameLabels)

	closestEncloser := wildcardAnswerSignatureName[idx[closestEncloserIdx]:]
	nextCloserName := wildcardAnswerSignatureName[idx[closestEncloserIdx-1]:]

	wildcardProof := doe.wildcardCovered(closestEncloser) || doe.wildcardMatched(closestEncloser)
	_, nextCloserNameProof := doe.nextCloserCovered(nextCloserName)

	// No DOE wildcard proof is needed (a wildcard may legitimately
	// exist), but the next-closer name must still prove QNAME absent.
	return !wildcardProof && nextCloserNameProof
}

// wildcardCovered reports whether an NSEC3 in doe.records covers (but
// does not match) the wildcard synthesised beneath closestEncloser.
func (doe *DenialOfExistenceNSEC3) wildcardCovered(closestEncloser string) (covered bool) {
	wildcard := "*." + closestEncloser
	for _, nsec3 := range doe.records {
		if nsec3.Match(wildcard) {
			return false
		}
		if nsec3.Cover(wildcard) {
			covered = true
		}
	}
	return
}

// wildcardMatched reports whether an NSEC3 in doe.records matches the
// wildcard synthesised beneath closestEncloser.
func (doe *DenialOfExistenceNSEC3) wildcardMatched(closestEncloser string) bool {
	wildcard := "*." + closestEncloser
	for _, nsec3 := range doe.records {
		if nsec3.Match(wildcard) {
			return true
		}
	}
	return false
}

// nextCloserCovered reports whether an NSEC3 covers nextCloserName,
// and whether any covering record opts out insecure delegations.
func (doe *DenialOfExistenceNSEC3) nextCloserCovered(nextCloserName string) (optedOut, covered bool) {
	for _, nsec3 := range doe.records {
		if nsec3.Match(nextCloserName) {
			return false, false
		}
		if nsec3.Cover(nextCloserName) {
			covered = true
			optedOut = optedOut || nsec3.Flags == 1
		}
	}
	return
}

// TypeBitMapContainsAnyOf reports whether an NSEC3 matching name is
// present (nameSeen) and, if so, whether its type bitmap sets any of
// types (typeSeen).
func (doe *DenialOfExistenceNSEC3) TypeBitMapContainsAnyOf(name string, types []uint16) (nameSeen, typeSeen bool) {
	for _, nsec3 := range doe.records {
		if !nsec3.Match(name) {
			continue
		}
		nameSeen = true
		for _, t := range types {
			if slices.Contains(nsec3.TypeBitMap, t) {
				return nameSeen, true
			}
		}
	}
	return nameSeen, false
}

// FindClosestEncloser walks qname from the leaf upward, hashing
// increasingly shorter ancestors until one matches an NSEC3 in
// doe.records, per RFC 7129 §5.5. Among ancestors that match, it picks
// the longest (closest) one that is eligible to serve as a closest
// encloser: RFC 5155 §8.3 excludes any candidate whose NSEC3 sets the
// DNAME bit, or sets NS without SOA — a sign the record is being used
// to falsely deny RRs the server isn't authoritative for.
func (doe *DenialOfExistenceNSEC3) FindClosestEncloser(qname string) (closestEncloser, nextCloserName string, ok bool) {
	type candidate struct {
		encloser   string
		nextCloser string
	}

	var candidates []candidate
	for _, nsec3 := range doe.records {
		last := 0
		for _, i := range dns.Split(qname) {
			ancestor := qname[i:]
			if !dns.IsSubDomain(doe.zone, ancestor) {
				break
			}

			if nsec3.Match(ancestor) {
				if slices.Contains(nsec3.TypeBitMap, dns.TypeDNAME) {
					continue
				}
				if slices.Contains(nsec3.TypeBitMap, dns.TypeNS) && !slices.Contains(nsec3.TypeBitMap, dns.TypeSOA) {
					continue
				}
				candidates = append(candidates, candidate{encloser: ancestor, nextCloser: qname[last:]})
				break
			}
			last = i
		}
	}

	if len(candidates) == 0 {
		return "", "", false
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if len(c.encloser) > len(best.encloser) {
			best = c
		}
	}
	return best.encloser, best.nextCloser, true
}
