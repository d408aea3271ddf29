package dnsval

import (
	"time"

	"github.com/miekg/dns"

	"github.com/hadrianlabs/dnsval/dnssec"
)

// Response is the outcome of validating a single client query: the
// (possibly rewritten) wire message plus the status spec.md §4.9 step 5
// assigns it.
type Response struct {
	Msg      *dns.Msg
	Err      error
	Auth     dnssec.AuthenticationResult
	Duration time.Duration
	TraceID  string
}

func (r *Response) Error() bool {
	return r.Err != nil
}

func (r *Response) Empty() bool {
	return r.Msg == nil
}

func (r *Response) Truncated() bool {
	if r.Empty() {
		return false
	}
	return r.Msg.Truncated
}

func ResponseError(err error) *Response {
	return &Response{Err: err}
}
