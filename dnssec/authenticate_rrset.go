package dnssec

import (
	"fmt"
	"time"

	"github.com/miekg/dns"
)

// authenticate verifies every RRSIG found in rrsets against dnskeys, and
// checks that the signed name/type combinations in rrsets are exactly the
// ones RFC 4035 §2.2 requires a signature for (skipping NS records in the
// authority section, together with any RRSIGs over them, and RRSIGs
// themselves). Several RRSIGs over the same name/type count once.
func authenticate(zone string, rrsets []dns.RR, dnskeys []*dns.DNSKEY, sec section) (signatures, error) {
	zone = dns.CanonicalName(zone)

	rrsigs := extractRecords[*dns.RRSIG](rrsets)
	sigs := make(signatures, len(rrsigs))

	for i, rrsig := range rrsigs {
		sig := signature{
			zone:  zone,
			name:  rrsig.Header().Name,
			rtype: rrsig.TypeCovered,
			rrsig: rrsig,
			rrset: extractRecordsOfNameAndType(rrsets, rrsig.Header().Name, rrsig.TypeCovered),
		}
		sigs[i] = &sig

		if zone != dns.CanonicalName(rrsig.SignerName) {
			sig.err = fmt.Errorf("%w: zone=%s signer=%s", ErrAuthSignerNameMismatch, zone, rrsig.SignerName)
			continue
		}

		if dns.CountLabel(rrsig.Header().Name) < int(rrsig.Labels) {
			sig.err = fmt.Errorf("%w: owner has %d labels, rrsig.Labels=%d", ErrInvalidLabelCount, dns.CountLabel(rrsig.Header().Name), rrsig.Labels)
			continue
		}

		if !rrsig.ValidityPeriod(time.Now()) {
			sig.err = fmt.Errorf("%w: valid %s to %s", ErrInvalidTime, dns.TimeToString(rrsig.Inception), dns.TimeToString(rrsig.Expiration))
			continue
		}

		if dns.CountLabel(rrsig.Header().Name) > int(rrsig.Labels) {
			sig.wildcard = true
		}

		// RFC 4035 §5.3.1: more than one DNSKEY may match on
		// (Algorithm,KeyTag,owner); try each until one verifies.
		for _, key := range dnskeys {
			if key.Algorithm != rrsig.Algorithm || key.KeyTag() != rrsig.KeyTag {
				continue
			}
			if dns.CanonicalName(key.Header().Name) != dns.CanonicalName(rrsig.SignerName) {
				continue
			}

			if err := rrsig.Verify(key, sig.rrset); err != nil {
				sig.err = fmt.Errorf("%w: %w", ErrInvalidSignature, err)
				continue
			}
			sig.key = key
			sig.verified = true
			sig.err = nil
			break
		}
	}

	combos := make(map[struct {
		name  string
		rtype uint16
	}]bool, len(rrsigs))

	for _, rr := range rrsets {
		if rr.Header().Rrtype == dns.TypeRRSIG {
			continue
		}
		if sec == authoritySection && rr.Header().Rrtype == dns.TypeNS {
			continue
		}
		combos[struct {
			name  string
			rtype uint16
		}{rr.Header().Name, rr.Header().Rrtype}] = true
	}

	signed := sigs.countNameTypeCombinations()
	if sec == authoritySection {
		signed -= sigs.filterOnType(dns.TypeNS).countNameTypeCombinations()
	}

	var err error
	if len(combos) != signed {
		err = fmt.Errorf("%w: %d signed name/type combinations for %d name/type combinations", ErrUnexpectedSignatureCount, signed, len(combos))
	}

	return sigs, err
}
