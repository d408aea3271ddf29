package dnsval

import (
	"github.com/miekg/dns"

	"github.com/hadrianlabs/dnsval/dnssec"
)

// finalize implements spec.md §4.9 step 5: Secure sets AD=1 and returns
// reply unchanged; Bogus replaces reply with a SERVFAIL carrying an EDE
// option and (if configured) a reason TXT record; Insecure (and the
// Unknown fallback) return reply as-is with AD cleared.
func (r *Resolver) finalize(reply *dns.Msg, result dnssec.AuthenticationResult, verr error) *Response {
	switch result {
	case dnssec.Secure:
		reply.AuthenticatedData = true
		return &Response{Msg: reply, Auth: result}

	case dnssec.Bogus:
		return &Response{Msg: r.servfail(reply, verr), Auth: result, Err: verr}

	default: // Insecure, Indeterminate, Unknown
		reply.AuthenticatedData = false
		return &Response{Msg: reply, Auth: dnssec.Insecure}
	}
}

// servfail builds the SERVFAIL replacement spec.md §4.9 step 5 and §7
// describe: the original question preserved, AD cleared, an EDE option
// naming the failure, and an optional reason TXT in ADDITIONAL.
func (r *Resolver) servfail(original *dns.Msg, verr error) *dns.Msg {
	m := new(dns.Msg)
	m.SetRcode(original, dns.RcodeServerFailure)
	m.Question = original.Question
	m.AuthenticatedData = false
	m.RecursionAvailable = original.RecursionAvailable

	if r.config.AddReasonToAdditional && verr != nil {
		m.Extra = append(m.Extra, reasonTXT(verr, r.config.ValidationReasonClass))
	}

	// SetEdns0 appends, so the OPT record ends up last in ADDITIONAL.
	opt := m.IsEdns0()
	if opt == nil {
		m.SetEdns0(defaultUDPSize, true)
		opt = m.IsEdns0()
	}
	opt.Option = append(opt.Option, dnssec.ExtendedError(verr))

	return m
}

const maxTXTSegment = 255

// reasonTXT synthesizes the informational TXT record spec.md §4.9 step 5
// and §6 describe, splitting the human-readable reason into <=255-octet
// segments (a single TXT character-string's wire limit).
func reasonTXT(err error, class uint16) *dns.TXT {
	msg := err.Error()

	var segments []string
	for len(msg) > maxTXTSegment {
		segments = append(segments, msg[:maxTXTSegment])
		msg = msg[maxTXTSegment:]
	}
	segments = append(segments, msg)

	return &dns.TXT{
		Hdr: dns.RR_Header{Name: ".", Rrtype: dns.TypeTXT, Class: class, Ttl: 0},
		Txt: segments,
	}
}
