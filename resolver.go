package dnsval

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/miekg/dns"

	"github.com/hadrianlabs/dnsval/cache"
	"github.com/hadrianlabs/dnsval/dnssec"
	"github.com/hadrianlabs/dnsval/dnssec/doe"
	"github.com/hadrianlabs/dnsval/keycache"
	"github.com/hadrianlabs/dnsval/rrset"
)

// Resolver is the validating stub-layer state machine of spec.md §4.9: it
// forwards a client query through Transport, classifies the reply, walks
// the chain of trust from the nearest trust anchor down to the signer
// using the shared caches, verifies the classified shape, and finalizes
// the response with an AD bit, or a SERVFAIL carrying an EDE option.
type Resolver struct {
	transport Transport
	config    Config

	anchors *keycache.TrustAnchorStore
	keys    *keycache.Cache
	cache   *cache.Cache
}

// NewResolver builds a Resolver over transport. If cfg.TrustAnchorFile is
// set it is loaded as the trust-anchor store; otherwise the built-in IANA
// root anchor (keycache.Default) seeds it.
func NewResolver(transport Transport, cfg Config) (*Resolver, error) {
	anchors := keycache.Default()
	if cfg.TrustAnchorFile != "" {
		f, err := os.Open(cfg.TrustAnchorFile)
		if err != nil {
			return nil, fmt.Errorf("dnsval: opening trust anchor file: %w", err)
		}
		defer f.Close()

		tas, err := keycache.LoadZoneFile(f, ".")
		if err != nil {
			return nil, fmt.Errorf("dnsval: loading trust anchor file: %w", err)
		}
		anchors = keycache.NewTrustAnchorStore()
		for _, ta := range tas {
			anchors.Add(ta)
		}
	}

	credCache, err := cache.New(cfg.MaxCacheEntries, cache.WithMaxTTLs(cfg.MaxCacheTTL, cfg.MaxNegativeCacheTTL))
	if err != nil {
		return nil, fmt.Errorf("dnsval: building cache: %w", err)
	}

	return &Resolver{
		transport: transport,
		config:    cfg,
		anchors:   anchors,
		keys:      keycache.New(),
		cache:     credCache,
	}, nil
}

// Validate runs query through the full state machine and returns the
// response the caller should send back to its client.
func (r *Resolver) Validate(ctx context.Context, query *dns.Msg) *Response {
	start := time.Now()

	if query == nil {
		return ResponseError(ErrNilQuery)
	}
	if len(query.Question) == 0 {
		return ResponseError(ErrNoQuestion)
	}

	trace, ok := ctx.Value(ctxTrace).(*Trace)
	if !ok {
		trace = NewTrace()
		ctx = context.WithValue(ctx, ctxTrace, trace)
	}

	question := query.Question[0]
	Debug(fmt.Sprintf("[%s] validating %s %s", trace.ShortID(), question.Name, dns.TypeToString[question.Qtype]))

	// Phase 1: forward, via the credibility cache (spec.md §4.6) when it
	// already holds an answer for this question.
	reply, fromCache := r.cachedReply(question)
	if !fromCache {
		outgoing := prepareOutgoing(query, defaultUDPSize)
		fresh, err := r.transport.Send(ctx, outgoing)
		if err != nil {
			return &Response{Err: fmt.Errorf("%w: %w", ErrTransportFailed, err), Duration: time.Since(start), TraceID: trace.ID()}
		}
		if fresh == nil {
			return &Response{Err: ErrEmptyResponse, Duration: time.Since(start), TraceID: trace.ID()}
		}
		if len(fresh.Question) == 0 ||
			dns.CanonicalName(fresh.Question[0].Name) != dns.CanonicalName(question.Name) ||
			fresh.Question[0].Qtype != question.Qtype {
			return &Response{Err: ErrResponseMismatch, Duration: time.Since(start), TraceID: trace.ID()}
		}
		if err := r.cache.PutMessage(fresh); err != nil {
			Warn(fmt.Sprintf("[%s] caching %s %s: %s", trace.ShortID(), question.Name, dns.TypeToString[question.Qtype], err))
		}
		reply = fresh
	}

	result, doeState, verr := r.authenticate(ctx, reply, question)
	Debug(fmt.Sprintf("[%s] %s %s -> %s (%s)", trace.ShortID(), question.Name, dns.TypeToString[question.Qtype], result, doeState))

	final := r.finalize(reply, result, verr)
	final.Duration = time.Since(start)
	final.TraceID = trace.ID()
	return final
}

// cachedReply reconstructs a wire message from a credibility-cache hit for
// question, if any (spec.md §4.6's lookupRecords), so Validate can skip the
// transport round trip entirely. The reply still runs through the normal
// authenticate/finalize pipeline afterwards, so the AD bit always reflects
// a fresh verification against the cached records and their signatures
// rather than a remembered verdict.
func (r *Resolver) cachedReply(question dns.Question) (*dns.Msg, bool) {
	hit := r.cache.Lookup(question.Name, question.Qtype, cache.Additional)
	if hit.Tag == cache.Unknown {
		return nil, false
	}

	reply := new(dns.Msg)
	reply.SetQuestion(dns.CanonicalName(question.Name), question.Qtype)
	reply.Question[0].Qclass = question.Qclass
	reply.Response = true
	reply.RecursionAvailable = true
	reply.Authoritative = false

	switch hit.Tag {
	case cache.SUCCESSFUL, cache.CNAME, cache.DNAME:
		for _, set := range hit.RRsets {
			reply.Answer = append(reply.Answer, set.Records()...)
			reply.Answer = append(reply.Answer, sigsAsRR(set.Sigs())...)
		}
	case cache.DELEGATION:
		for _, set := range hit.RRsets {
			reply.Ns = append(reply.Ns, set.Records()...)
			reply.Ns = append(reply.Ns, sigsAsRR(set.Sigs())...)
		}
	case cache.NXDOMAIN, cache.NXRRSET:
		reply.Rcode = dns.RcodeSuccess
		if hit.Tag == cache.NXDOMAIN {
			reply.Rcode = dns.RcodeNameError
		}
		for _, set := range hit.RRsets {
			reply.Ns = append(reply.Ns, set.Records()...)
			reply.Ns = append(reply.Ns, sigsAsRR(set.Sigs())...)
		}
	default:
		return nil, false
	}
	return reply, true
}

// authenticate runs phases 2-4 of the state machine and returns the
// overall verdict for reply.
func (r *Resolver) authenticate(ctx context.Context, reply *dns.Msg, question dns.Question) (dnssec.AuthenticationResult, dnssec.DenialOfExistenceState, error) {
	class := question.Qclass
	if class == 0 {
		class = dns.ClassINET
	}

	authority := stripUnsignedNSIfHarmless(reply.Answer, reply.Ns)
	rtype := dnssec.Classify(reply, question.Name, question.Qtype)

	signerName, haveSig := primarySignerName(reply.Answer, authority)
	if !haveSig {
		signerName = dns.CanonicalName(question.Name)
	}

	entry, keyState, err := r.findKey(ctx, signerName, class)
	if keyState != dnssec.Secure {
		return keyState, dnssec.NotFound, err
	}
	dnskeys := asDNSKEYs(entry.Keys.Records())

	switch rtype {
	case dnssec.TypePositive, dnssec.TypeCNAME, dnssec.TypeAny:
		terminal, owners := walkCNAMEChain(reply.Answer, question.Name)
		for _, owner := range owners {
			cset := buildSet(owner, dns.TypeCNAME, class, reply.Answer)
			if cset.Len() == 0 {
				continue
			}
			if _, state, verr := dnssec.ValidatePositive(signerName, cset, dnskeys); state != dnssec.Secure {
				return state, dnssec.NotFound, verr
			}
		}
		answer := buildSet(terminal, question.Qtype, class, reply.Answer)
		_, state, verr := dnssec.ValidatePositive(signerName, answer, dnskeys)
		return state, dnssec.NotFound, verr

	case dnssec.TypeNoData, dnssec.TypeCNAMENoData, dnssec.TypeNameError, dnssec.TypeCNAMENameError:
		soa := buildSet(soaOwner(authority), dns.TypeSOA, class, authority)
		nsecDoe := doe.NewDenialOfExistenceNSEC(ctx, signerName, extractRecords[*dns.NSEC](authority))
		nsec3Doe := doe.NewDenialOfExistenceNSEC3(ctx, signerName, extractRecords[*dns.NSEC3](authority), r.config.MaxNSEC3Iterations)
		state, doeState, verr := dnssec.ValidateNegative(signerName, soa, dnskeys, rtype, question.Name, question.Qtype, nsecDoe, nsec3Doe)
		if state == dnssec.Secure {
			tag := cache.NXRRSET
			if rtype == dnssec.TypeNameError || rtype == dnssec.TypeCNAMENameError {
				tag = cache.NXDOMAIN
			}
			r.cache.PutNegative(question.Name, question.Qtype, soa, tag, cache.CredibilityFor(cache.Authority, reply.Authoritative))
		}
		return state, doeState, verr

	case dnssec.TypeReferral:
		dsSet := buildSet(question.Name, dns.TypeDS, class, authority)
		nsecDoe := doe.NewDenialOfExistenceNSEC(ctx, signerName, extractRecords[*dns.NSEC](authority))
		nsec3Doe := doe.NewDenialOfExistenceNSEC3(ctx, signerName, extractRecords[*dns.NSEC3](authority), r.config.MaxNSEC3Iterations)
		return dnssec.ValidateDelegation(signerName, dsSet, dnskeys, nsecDoe, nsec3Doe, question.Name)
	}

	return dnssec.Bogus, dnssec.NotFound, dnssec.ErrFailsafeResponse
}

// soaOwner returns the owner of the first SOA record in rrs, falling back
// to rrs[0]'s owner when no SOA is present (buildSet then yields an empty
// set, which ValidateRRset correctly rejects).
func soaOwner(rrs []dns.RR) string {
	for _, r := range rrs {
		if soa, ok := r.(*dns.SOA); ok {
			return soa.Header().Name
		}
	}
	if len(rrs) > 0 {
		return rrs[0].Header().Name
	}
	return "."
}

// findKey implements spec.md §4.9 step 3: resolve signerName's validated
// DNSKEY set, walking down from the nearest trust anchor one zone at a
// time, caching every intermediate Good/Null/Bad verdict along the way.
func (r *Resolver) findKey(ctx context.Context, signerName string, class uint16) (*keycache.KeyEntry, dnssec.AuthenticationResult, error) {
	signerName = dns.CanonicalName(signerName)

	anchor, ok := r.anchors.Find(signerName, class)
	if !ok {
		entry := &keycache.KeyEntry{Owner: signerName, Class: class, State: keycache.Null}
		return entry, dnssec.Insecure, ErrNoTrustAnchor
	}

	if entry, ok := r.keys.Find(signerName, class); ok {
		switch entry.State {
		case keycache.Good:
			return entry, dnssec.Secure, nil
		case keycache.Null:
			return entry, dnssec.Insecure, nil
		default:
			return entry, dnssec.Bogus, dnssec.ErrKeysNotFound
		}
	}

	parentName := anchor.Owner
	var parentKeys []*dns.DNSKEY

	if len(anchor.Keys) > 0 {
		parentKeys = anchor.Keys
	} else {
		entry, state, err := r.resolveDNSKEYs(ctx, anchor.Owner, class, anchor.DS)
		if state != dnssec.Secure {
			return entry, state, err
		}
		parentKeys = asDNSKEYs(entry.Keys.Records())
	}

	chain := ancestorChain(anchor.Owner, signerName)
	for i, name := range chain {
		if i >= r.config.MaxFindKeyIterations {
			return nil, dnssec.Bogus, ErrMaxIterationsReached
		}

		if cached, ok := r.keys.Get(name, class); ok {
			switch cached.State {
			case keycache.Good:
				parentKeys = asDNSKEYs(cached.Keys.Records())
				parentName = name
				continue
			case keycache.Null:
				return cached, dnssec.Insecure, nil
			default:
				return cached, dnssec.Bogus, dnssec.ErrKeysNotFound
			}
		}

		dsMsg, err := r.transport.Send(ctx, newSubQuery(name, dns.TypeDS))
		if err != nil {
			return nil, dnssec.Bogus, fmt.Errorf("%w: %w", ErrTransportFailed, err)
		}
		dsSet := buildSet(name, dns.TypeDS, class, dsMsg.Answer)

		var nsecDoe *doe.DenialOfExistenceNSEC
		var nsec3Doe *doe.DenialOfExistenceNSEC3
		if dsSet.Len() == 0 {
			nsecDoe = doe.NewDenialOfExistenceNSEC(ctx, parentName, extractRecords[*dns.NSEC](dsMsg.Ns))
			nsec3Doe = doe.NewDenialOfExistenceNSEC3(ctx, parentName, extractRecords[*dns.NSEC3](dsMsg.Ns), r.config.MaxNSEC3Iterations)
		}

		delegState, _, err := dnssec.ValidateDelegation(parentName, dsSet, parentKeys, nsecDoe, nsec3Doe, name)
		if delegState == dnssec.Insecure {
			entry := &keycache.KeyEntry{Owner: name, Class: class, State: keycache.Null, Expires: time.Now().Add(r.config.MaxNegativeCacheTTL)}
			r.keys.Put(entry)
			return entry, dnssec.Insecure, nil
		}
		if delegState != dnssec.Secure {
			entry := &keycache.KeyEntry{Owner: name, Class: class, State: keycache.Bad, Expires: time.Now().Add(time.Minute)}
			r.keys.Put(entry)
			return entry, dnssec.Bogus, err
		}

		entry, state, err := r.resolveDNSKEYs(ctx, name, class, asDS(dsSet.Records()))
		if state != dnssec.Secure {
			return entry, state, err
		}
		parentKeys = asDNSKEYs(entry.Keys.Records())
		parentName = name
	}

	if final, ok := r.keys.Get(signerName, class); ok {
		switch final.State {
		case keycache.Good:
			return final, dnssec.Secure, nil
		case keycache.Null:
			return final, dnssec.Insecure, nil
		default:
			return final, dnssec.Bogus, dnssec.ErrKeysNotFound
		}
	}

	// The chain was empty: signerName *is* the anchor.
	entry := &keycache.KeyEntry{
		Owner:   anchor.Owner,
		Class:   class,
		State:   keycache.Good,
		Keys:    rrset.NewSRRset(rrset.New(anchor.Owner, dns.TypeDNSKEY, class)),
		Expires: time.Now().Add(r.config.MaxCacheTTL),
	}
	for _, k := range parentKeys {
		_ = entry.Keys.Add(k)
	}
	entry.Keys.Status = rrset.Secure
	r.keys.Put(entry)
	return entry, dnssec.Secure, nil
}

// resolveDNSKEYs fetches and validates name's DNSKEY RRset against parentDS,
// caching the outcome before returning it.
func (r *Resolver) resolveDNSKEYs(ctx context.Context, name string, class uint16, parentDS []*dns.DS) (*keycache.KeyEntry, dnssec.AuthenticationResult, error) {
	dnskeyMsg, err := r.transport.Send(ctx, newSubQuery(name, dns.TypeDNSKEY))
	if err != nil {
		return nil, dnssec.Bogus, fmt.Errorf("%w: %w", ErrTransportFailed, err)
	}

	dnskeySet := buildSet(name, dns.TypeDNSKEY, class, dnskeyMsg.Answer)
	out, state, verr := dnssec.ValidateDNSKEYs(name, dnskeySet, parentDS)
	if state != dnssec.Secure {
		entry := &keycache.KeyEntry{Owner: name, Class: class, State: keycache.Bad, Expires: time.Now().Add(time.Minute)}
		if state == dnssec.Insecure {
			entry.State = keycache.Null
			entry.Expires = time.Now().Add(r.config.MaxNegativeCacheTTL)
		}
		r.keys.Put(entry)
		return entry, state, verr
	}

	entry := &keycache.KeyEntry{
		Owner:   name,
		Class:   class,
		State:   keycache.Good,
		Keys:    out,
		Expires: time.Now().Add(cappedTTL(out.TTL(), r.config.MaxCacheTTL)),
	}
	r.keys.Put(entry)
	return entry, dnssec.Secure, nil
}

func cappedTTL(ttl uint32, limit time.Duration) time.Duration {
	d := time.Duration(ttl) * time.Second
	if d > limit {
		return limit
	}
	if d <= 0 {
		return time.Minute
	}
	return d
}
