package dnsval

import "errors"

var (
	ErrNilQuery             = errors.New("dnsval: nil query message")
	ErrNoQuestion           = errors.New("dnsval: query carries no question")
	ErrNotRecursionDesired  = errors.New("dnsval: only recursive queries are accepted")
	ErrEmptyResponse        = errors.New("dnsval: transport returned an empty response")
	ErrResponseMismatch     = errors.New("dnsval: response does not answer the question asked")
	ErrTransportFailed      = errors.New("dnsval: transport failed")
	ErrMaxIterationsReached = errors.New("dnsval: max findKey iterations reached")
	ErrUnsupportedAlgorithm = errors.New("dnsval: unsupported DNSKEY algorithm")
	ErrNoTrustAnchor        = errors.New("dnsval: no trust anchor covers this name")
)
