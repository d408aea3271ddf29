package dnssec

import "github.com/miekg/dns"

// ResponseType is the shape of a reply relative to its question, per
// spec.md §4.8. It drives which ValidateXxx function a Resolver calls next.
type ResponseType uint8

const (
	TypePositive ResponseType = iota
	TypeCNAME
	TypeAny
	TypeNoData
	TypeNameError
	TypeCNAMENoData
	TypeCNAMENameError
	TypeReferral
)

func (t ResponseType) String() string {
	switch t {
	case TypePositive:
		return "POSITIVE"
	case TypeCNAME:
		return "CNAME"
	case TypeAny:
		return "ANY"
	case TypeNoData:
		return "NODATA"
	case TypeNameError:
		return "NAMEERROR"
	case TypeCNAMENoData:
		return "CNAME_NODATA"
	case TypeCNAMENameError:
		return "CNAME_NAMEERROR"
	case TypeReferral:
		return "REFERRAL"
	default:
		return "UNKNOWN"
	}
}

// Classify determines msg's ResponseType with respect to (qname,qtype), per
// spec.md §4.8's classification table: a CNAME chain is walked first (the
// message may answer the original question directly, via one or more
// CNAMEs, or not at all), then the terminal name's presence/absence and the
// SOA/NS shape of the authority section distinguish NODATA, NXDOMAIN and
// referral.
func Classify(msg *dns.Msg, qname string, qtype uint16) ResponseType {
	qname = dns.CanonicalName(qname)

	if qtype == dns.TypeANY {
		for _, rr := range msg.Answer {
			if dns.CanonicalName(rr.Header().Name) == qname {
				return TypeAny
			}
		}
	}

	sawCNAME := false
	current := qname
	for {
		direct := extractRecordsOfNameAndType(msg.Answer, current, qtype)
		if len(direct) > 0 {
			if sawCNAME {
				return TypeCNAME
			}
			return TypePositive
		}

		cnames := extractRecordsOfNameAndType(msg.Answer, current, dns.TypeCNAME)
		if len(cnames) == 0 {
			break
		}
		sawCNAME = true
		current = dns.CanonicalName(cnames[0].(*dns.CNAME).Target)
	}

	// No direct or CNAME-chained answer. Inspect the authority section.
	soa := extractRecordsOfType(msg.Ns, dns.TypeSOA)
	ns := extractRecordsOfType(msg.Ns, dns.TypeNS)

	if msg.Rcode == dns.RcodeNameError {
		if sawCNAME {
			return TypeCNAMENameError
		}
		return TypeNameError
	}

	if len(soa) > 0 {
		if sawCNAME {
			return TypeCNAMENoData
		}
		return TypeNoData
	}

	if len(ns) > 0 {
		return TypeReferral
	}

	if sawCNAME {
		return TypeCNAMENoData
	}
	return TypeNoData
}
