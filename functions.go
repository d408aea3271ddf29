package dnsval

import (
	"strings"

	"github.com/miekg/dns"

	"github.com/hadrianlabs/dnsval/rrset"
)

var dnsRCodes = map[int]string{
	0:  "NoError",   // RcodeSuccess
	1:  "FormErr",   // RcodeFormatError
	2:  "ServFail",  // RcodeServerFailure
	3:  "NXDomain",  // RcodeNameError
	4:  "NotImp",    // RcodeNotImplemented
	5:  "Refused",   // RcodeRefused
	6:  "YXDomain",  // RcodeYXDomain
	7:  "YXRRSet",   // RcodeYXRrset
	8:  "NXRRSet",   // RcodeNXRrset
	9:  "NotAuth",   // RcodeNotAuth
	10: "NotZone",   // RcodeNotZone
	16: "BADSIG",    // RcodeBadSig and RcodeBadVers
	17: "BADKEY",    // RcodeBadKey
	18: "BADTIME",   // RcodeBadTime
	19: "BADMODE",   // RcodeBadMode
	20: "BADNAME",   // RcodeBadName
	21: "BADALG",    // RcodeBadAlg
	22: "BADTRUNC",  // RcodeBadTrunc
	23: "BADCOOKIE", // RcodeBadCookie
}

// RcodeToString gives a short mnemonic for rcode, for log lines; it falls
// back to "unknown" for anything not in the RFC-assigned range above.
func RcodeToString(rcode int) string {
	if name, ok := dnsRCodes[rcode]; ok {
		return name
	}
	return "unknown"
}

// isSetDO reports whether msg's OPT pseudo-record carries the DO bit.
func isSetDO(msg *dns.Msg) bool {
	for _, extra := range msg.Extra {
		if opt, ok := extra.(*dns.OPT); ok {
			return opt.Do()
		}
	}
	return false
}

// extractRecords filters rr down to the concrete RR type T, generalising
// across every typed-record extraction this file needs the way the
// dnssec package's own extractRecords[T] does.
func extractRecords[T dns.RR](rr []dns.RR) []T {
	result := make([]T, 0, len(rr))
	for _, record := range rr {
		if typed, ok := record.(T); ok {
			result = append(result, typed)
		}
	}
	return result
}

// buildSet collects every record and covering RRSIG owned by owner/rtype
// out of pool into an RRset, tolerating an empty result (unlike
// rrset.FromRecords, which errors on an empty slice) since a missing DS or
// SOA set is a meaningful, not exceptional, outcome here.
func buildSet(owner string, rtype, class uint16, pool []dns.RR) *rrset.RRset {
	owner = dns.CanonicalName(owner)
	set := rrset.New(owner, rtype, class)
	for _, r := range pool {
		h := r.Header()
		if sig, ok := r.(*dns.RRSIG); ok {
			if dns.CanonicalName(h.Name) == owner && sig.TypeCovered == rtype {
				_ = set.Add(sig)
			}
			continue
		}
		if dns.CanonicalName(h.Name) == owner && h.Rrtype == rtype && h.Class == class {
			_ = set.Add(r)
		}
	}
	return set
}

// primarySignerName returns the signer of the first RRSIG found across
// sections, in order; callers fall back to the question name itself when
// no RRSIG is present anywhere in the response.
func primarySignerName(sections ...[]dns.RR) (string, bool) {
	for _, sec := range sections {
		for _, r := range sec {
			if sig, ok := r.(*dns.RRSIG); ok {
				return dns.CanonicalName(sig.SignerName), true
			}
		}
	}
	return "", false
}

// stripUnsignedNSIfHarmless implements spec.md §4.9 step 2: when no RRSIG in
// AUTHORITY covers NS, the NS records there are dropped from consideration
// (other AUTHORITY records are kept), unless that would leave both ANSWER
// and AUTHORITY empty, so a validator only ever authenticates material that
// changes the answer.
func stripUnsignedNSIfHarmless(answer, authority []dns.RR) []dns.RR {
	if len(authority) == 0 {
		return authority
	}
	for _, r := range authority {
		if sig, ok := r.(*dns.RRSIG); ok && sig.TypeCovered == dns.TypeNS {
			return authority
		}
	}

	kept := make([]dns.RR, 0, len(authority))
	for _, r := range authority {
		if r.Header().Rrtype != dns.TypeNS {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 && len(answer) == 0 {
		return authority
	}
	return kept
}

// walkCNAMEChain follows CNAME records in answer starting at qname, up to
// a generous hop limit, returning the terminal (non-CNAME) owner name and
// every owner visited along the way (including qname itself), so the
// caller can validate each CNAME RRset plus the terminal answer RRset.
func walkCNAMEChain(answer []dns.RR, qname string) (terminal string, owners []string) {
	const maxHops = 20

	current := dns.CanonicalName(qname)
	for i := 0; i < maxHops; i++ {
		owners = append(owners, current)

		next, ok := "", false
		for _, r := range answer {
			if c, isCNAME := r.(*dns.CNAME); isCNAME && dns.CanonicalName(c.Header().Name) == current {
				next, ok = dns.CanonicalName(c.Target), true
				break
			}
		}
		if !ok {
			return current, owners
		}
		current = next
	}
	return current, owners
}

// asDNSKEYs narrows a validated RRset's generic records down to the typed
// DNSKEYs findKey/resolveDNSKEYs pass on to the next verification step.
func asDNSKEYs(records []dns.RR) []*dns.DNSKEY {
	return extractRecords[*dns.DNSKEY](records)
}

// asDS narrows a validated DS RRset's generic records down to typed DS
// records, for the ValidateDNSKEYs call that follows a delegation step.
func asDS(records []dns.RR) []*dns.DS {
	return extractRecords[*dns.DS](records)
}

// sigsAsRR widens a validated RRset's signatures back into a plain dns.RR
// slice, for appending into a synthesized message's sections.
func sigsAsRR(sigs []*dns.RRSIG) []dns.RR {
	out := make([]dns.RR, 0, len(sigs))
	for _, s := range sigs {
		out = append(out, s)
	}
	return out
}

// ancestorChain returns every name below anchor down to and including
// signer, ordered from the anchor's immediate child down to signer, so a
// caller can issue one DS+DNSKEY step per entry while walking the chain of
// trust downward (spec.md §4.9 step 3). Generalises the teacher's
// domain.gap, rebuilt directly over dns.SplitDomainName/dns.CountLabel
// since that method lived on the domain type this module no longer keeps.
func ancestorChain(anchor, signer string) []string {
	anchor = dns.CanonicalName(anchor)
	signer = dns.CanonicalName(signer)
	if anchor == signer {
		return nil
	}

	labels := dns.SplitDomainName(signer)
	base := dns.CountLabel(anchor)
	n := len(labels) - base
	if n <= 0 {
		return nil
	}

	chain := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		chain = append(chain, dns.Fqdn(strings.Join(labels[len(labels)-base-i:], ".")))
	}
	return chain
}
