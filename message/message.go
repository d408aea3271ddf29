// Package message wraps *dns.Msg with the truncation-aware serialisation
// behaviour spec.md §4.4 requires. dns.Msg.Pack already gives us compliant
// RFC 1035 framing, name compression and OPT placement (the wire-codec
// dependency, per DESIGN.md); what it does not give us is a "rewind to the
// last complete RRset and set TC" budget writer, so that part is hand
// rolled here.
package message

import (
	"errors"

	"github.com/miekg/dns"
)

var ErrNoRoomForHeader = errors.New("message: maxLength too small to hold the header")

// Message is a thin, named wrapper over *dns.Msg so the rest of the module
// can talk about "the message" rather than reaching into miekg/dns
// internals directly.
type Message struct {
	*dns.Msg
}

// New wraps msg; msg may be nil, producing an empty message.
func New(msg *dns.Msg) *Message {
	if msg == nil {
		msg = new(dns.Msg)
	}
	return &Message{Msg: msg}
}

// PackWithBudget serialises m to wire format, greedily filling ANSWER,
// AUTHORITY then ADDITIONAL up to maxLength octets. If a record would
// exceed the budget, serialisation rewinds to the last complete RRset
// boundary, sets the TC flag, and omits the remaining sections entirely
// (per spec.md §4.4: "later sections are zeroed"). The OPT pseudo-record is
// packed at the position it holds in m's ADDITIONAL section and is not moved
// to the end; when truncation stops before ADDITIONAL, or ADDITIONAL is cut
// before the OPT, the OPT is omitted along with the rest of it.
func (m *Message) PackWithBudget(maxLength int) ([]byte, bool, error) {
	full, err := m.Msg.Pack()
	if err != nil {
		return nil, false, err
	}
	if len(full) <= maxLength {
		return full, false, nil
	}

	header := m.Msg.Copy()
	header.Answer = nil
	header.Ns = nil
	header.Extra = nil
	headerOnly, err := header.Pack()
	if err != nil {
		return nil, false, err
	}
	if len(headerOnly) > maxLength {
		return nil, false, ErrNoRoomForHeader
	}

	truncated := header.Copy()
	truncated.Truncated = true

	budget := maxLength

	truncated.Answer = fitRRsets(m.Msg.Answer, truncated, &budget, answerSection)
	if len(truncated.Answer) == len(m.Msg.Answer) {
		truncated.Ns = fitRRsets(m.Msg.Ns, truncated, &budget, authoritySection)
		if len(truncated.Ns) == len(m.Msg.Ns) {
			truncated.Extra = fitRRsets(m.Msg.Extra, truncated, &budget, additionalSection)
		}
	}

	out, err := truncated.Pack()
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

type section uint8

const (
	answerSection section = iota
	authoritySection
	additionalSection
)

// fitRRsets appends whole RRsets (grouped by owner+type, so a set is never
// split across the truncation boundary) from records into a trial copy of
// msg until packing the trial message with the next RRset would exceed
// *budget octets in total; *budget itself is left unchanged.
func fitRRsets(records []dns.RR, msg *dns.Msg, budget *int, sec section) []dns.RR {
	groups := groupByRRset(records)

	kept := make([]dns.RR, 0, len(records))
	for _, group := range groups {
		trial := msg.Copy()
		candidate := append(append([]dns.RR{}, kept...), group...)
		switch sec {
		case answerSection:
			trial.Answer = candidate
		case authoritySection:
			trial.Ns = candidate
		case additionalSection:
			trial.Extra = candidate
		}
		packed, err := trial.Pack()
		if err != nil || len(packed) > *budget {
			return kept
		}
		kept = candidate
	}
	return kept
}

// groupByRRset partitions records into contiguous runs sharing owner+type,
// preserving input order, so a set is never split mid-write.
func groupByRRset(records []dns.RR) [][]dns.RR {
	groups := make([][]dns.RR, 0, len(records))
	var current []dns.RR
	for _, r := range records {
		if len(current) > 0 {
			h, ch := current[0].Header(), r.Header()
			if h.Name != ch.Name || h.Rrtype != ch.Rrtype {
				groups = append(groups, current)
				current = nil
			}
		}
		current = append(current, r)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}
