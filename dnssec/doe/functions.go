package doe

import (
	"strconv"
	"strings"

	"github.com/miekg/dns"
)

// wildcardName replaces qname's leftmost label with "*", the synthesising
// name a wildcard RRset is owned by (RFC 4035 §3.1.3).
func wildcardName(qname string) string {
	idx := dns.Split(qname)
	if len(idx) < 2 {
		return "*."
	}
	return "*." + qname[idx[1]:]
}

// ownerOrder compares a and b in the canonical, case-insensitive,
// right-to-left label order RFC 4034 §6.1 defines for NSEC ordering
// ("owner < qname < next"), returning <0, 0, or >0. Escaped octets
// (e.g. \001) are decoded back to their byte value before comparing, so
// an owner name containing one sorts the same as the unescaped record
// it denotes would.
func ownerOrder(a, b string) int {
	la := dns.SplitDomainName(dns.CanonicalName(a))
	lb := dns.SplitDomainName(dns.CanonicalName(b))

	shorter := min(len(la), len(lb))
	for i := 1; i <= shorter; i++ {
		labelA := decodeEscapes(la[len(la)-i])
		labelB := decodeEscapes(lb[len(lb)-i])
		if labelA != labelB {
			if labelA < labelB {
				return -1
			}
			return 1
		}
	}
	return len(la) - len(lb)
}

// decodeEscapes turns miekg/dns's \DDD escaped-octet notation back into
// the raw byte it represents, so comparison sees the same bytes the
// owner name actually encodes.
func decodeEscapes(label string) string {
	if !strings.Contains(label, `\`) {
		return label
	}

	var b strings.Builder
	for i := 0; i < len(label); i++ {
		if label[i] == '\\' && i+3 < len(label) && isDigit(label[i+1]) && isDigit(label[i+2]) && isDigit(label[i+3]) {
			if octet, err := strconv.Atoi(label[i+1 : i+4]); err == nil {
				b.WriteRune(rune(octet))
				i += 3
				continue
			}
		}
		b.WriteByte(label[i])
	}
	return b.String()
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
