package dnsval

import (
	"context"

	"github.com/miekg/dns"

	"github.com/hadrianlabs/dnsval/message"
	dnsname "github.com/hadrianlabs/dnsval/name"
	"github.com/hadrianlabs/dnsval/zone"
)

// LocalZoneTransport is a self-contained Transport that answers directly
// out of a fixed set of in-memory zones instead of dialing anything,
// using zone.Zone's findRecords algorithm (spec.md §4.5) and message's
// truncation-aware Pack (spec.md §4.4). It is meant for tests exercising
// a Resolver end to end, and for serving purely local/override zones a
// deployment wants the validator to see as already-authoritative (signed
// or otherwise) data without a round trip through the real upstream.
type LocalZoneTransport struct {
	zones []*zone.Zone
}

// NewLocalZoneTransport builds a transport serving the given zones, tried
// in order; the first zone whose apex covers the query name wins.
func NewLocalZoneTransport(zones ...*zone.Zone) *LocalZoneTransport {
	return &LocalZoneTransport{zones: zones}
}

// Send implements Transport.
func (t *LocalZoneTransport) Send(_ context.Context, query *dns.Msg) (*dns.Msg, error) {
	if len(query.Question) == 0 {
		return nil, ErrNoQuestion
	}
	q := query.Question[0]

	qname, err := dnsname.New(q.Name)
	if err != nil {
		return nil, err
	}

	reply := new(dns.Msg)
	reply.SetReply(query)
	reply.Authoritative = true
	reply.Rcode = dns.RcodeNameError

	for _, z := range t.zones {
		if !qname.Subdomain(z.Name()) {
			continue
		}

		resp := z.FindRecords(qname, q.Qtype)
		switch resp.Tag {
		case zone.SUCCESSFUL, zone.CNAME:
			reply.Rcode = dns.RcodeSuccess
			for _, set := range resp.RRsets {
				reply.Answer = append(reply.Answer, set.Records()...)
			}
		case zone.DNAME:
			reply.Rcode = dns.RcodeSuccess
			for _, set := range resp.RRsets {
				reply.Answer = append(reply.Answer, set.Records()...)
			}
		case zone.DELEGATION:
			reply.Rcode = dns.RcodeSuccess
			reply.Authoritative = false
			for _, set := range resp.RRsets {
				reply.Ns = append(reply.Ns, set.Records()...)
			}
		case zone.NXRRSET:
			reply.Rcode = dns.RcodeSuccess
		case zone.NXDOMAIN:
			reply.Rcode = dns.RcodeNameError
		}
		break
	}

	budget := defaultUDPSize
	if opt := query.IsEdns0(); opt != nil && opt.UDPSize() > 0 {
		budget = int(opt.UDPSize())
	}

	packed, truncated, err := message.New(reply).PackWithBudget(budget)
	if err != nil {
		return nil, err
	}
	if !truncated {
		return reply, nil
	}

	out := new(dns.Msg)
	if err := out.Unpack(packed); err != nil {
		return nil, err
	}
	return out, nil
}
