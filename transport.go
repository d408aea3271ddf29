package dnsval

import (
	"context"

	"github.com/miekg/dns"
)

// Transport is the only collaborator the validator consumes (spec.md §6):
// a resolver loop it sits in front of. Send must return a fully parsed
// Message for query, or an error if none could be obtained. The validator
// itself never dials a socket or retries; that is Transport's job.
type Transport interface {
	Send(ctx context.Context, query *dns.Msg) (*dns.Msg, error)
}

// prepareOutgoing copies query and forces the header bits the validator
// insists on: recursion desired (the upstream resolver, not us, walks the
// tree), checking disabled (we do our own validation) and EDNS0 with the
// DO bit set. setEDNS is mandatory per spec.md §6 - the validator forbids
// disabling EDNS on the wire.
func prepareOutgoing(query *dns.Msg, udpSize uint16) *dns.Msg {
	out := query.Copy()
	out.RecursionDesired = true
	out.CheckingDisabled = true

	opt := out.IsEdns0()
	if opt == nil {
		out.SetEdns0(udpSize, true)
		opt = out.IsEdns0()
	} else {
		opt.SetUDPSize(udpSize)
		opt.SetDo(true)
	}
	return out
}

const defaultUDPSize = 4096

func newSubQuery(qname string, qtype uint16) *dns.Msg {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(qname), qtype)
	return prepareOutgoing(m, defaultUDPSize)
}
