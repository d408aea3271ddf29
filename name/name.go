// Package name implements the DNS name model described in RFC 1035 §3.1:
// ordered label sequences, canonical comparison, wildcard derivation and
// DNAME substitution. It is built directly on github.com/miekg/dns's name
// helpers (dns.Split, dns.SplitDomainName, dns.CountLabel, dns.IsSubDomain,
// dns.PackDomainName) rather than re-parsing labels from scratch.
package name

import (
	"errors"
	"fmt"
	"strings"

	"github.com/miekg/dns"
)

const maxNameLength = 255
const maxLabelLength = 63

var (
	ErrRelativeName = errors.New("name: operation requires an absolute name")
	ErrNameTooLong  = errors.New("name: resulting name exceeds 255 octets")
	ErrEmptyName    = errors.New("name: empty name")
)

// Name is an ordered sequence of labels, with a flag recording whether it
// is absolute (root-terminated) or relative.
type Name struct {
	canonical string // dns.CanonicalName form; always ends in "." when absolute
	indexes   []int  // label boundary offsets into canonical: end of name first, leftmost label's start last (see New)
	absolute  bool
}

// New builds a Name from a presentation-format string. Absolute names (those
// ending in ".", or given via dns.Fqdn upstream) are recognised as such;
// anything else is treated as relative.
func New(s string) (Name, error) {
	if s == "" {
		return Name{}, ErrEmptyName
	}

	absolute := strings.HasSuffix(s, ".")
	canonical := dns.CanonicalName(s) // always fqdn-izes; relative names are recovered below
	if !absolute {
		canonical = strings.TrimSuffix(canonical, ".")
	}

	if len(canonical) > maxNameLength {
		return Name{}, fmt.Errorf("%w: %q", ErrNameTooLong, s)
	}

	idx := dns.Split(canonical)
	for i := 0; i < len(idx); i++ {
		end := len(canonical)
		if i+1 < len(idx) {
			end = idx[i+1] - 1
		}
		if end-idx[i] > maxLabelLength {
			return Name{}, fmt.Errorf("name: label in %q exceeds 63 octets", s)
		}
	}

	// Reverse so the end-of-name offset (the most significant end) comes
	// first; Label, Wild and FromDNAME index from the end of the slice to
	// count labels from the left.
	sentinel := len(canonical)
	if absolute {
		sentinel-- // position of the trailing root "." itself
	}
	idx = append(idx, sentinel)
	reversed := make([]int, len(idx))
	for i, v := range idx {
		reversed[len(idx)-1-i] = v
	}

	return Name{canonical: canonical, indexes: reversed, absolute: absolute}, nil
}

// MustNew is New, panicking on error; intended for package-level constants
// and tests where the input is known-good.
func MustNew(s string) Name {
	n, err := New(s)
	if err != nil {
		panic(err)
	}
	return n
}

// Root is the zone apex name ".".
func Root() Name { return MustNew(".") }

func (n Name) String() string { return n.canonical }

// IsAbsolute reports whether the name is root-terminated.
func (n Name) IsAbsolute() bool { return n.absolute }

// RequireAbsolute returns ErrRelativeName if the name is not absolute; owner
// names and trust anchors must call this per spec.md §4.2.
func (n Name) RequireAbsolute() error {
	if !n.absolute {
		return fmt.Errorf("%w: %q", ErrRelativeName, n.canonical)
	}
	return nil
}

// Labels returns the number of labels, including the trailing root label for
// absolute names.
func (n Name) Labels() int {
	if n.canonical == "" {
		return 0
	}
	return dns.CountLabel(n.canonical) + boolToInt(n.absolute)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Label returns the i'th label counting from the left (0 = topmost/leftmost
// label, which is also the least significant under canonical ordering).
func (n Name) Label(i int) (string, bool) {
	if i < 0 || i >= len(n.indexes)-1 {
		return "", false
	}
	start := n.indexes[len(n.indexes)-1-i]
	end := n.indexes[len(n.indexes)-2-i]
	if i+2 < len(n.indexes) {
		end-- // drop the "." separating this label from the next
	}
	return n.canonical[start:end], true
}

// Subdomain reports whether n is equal to, or a subdomain of, suffix.
func (n Name) Subdomain(suffix Name) bool {
	return dns.IsSubDomain(suffix.canonical, n.canonical)
}

// Equal is case-insensitive equality per RFC 4034 §6.1.
func (n Name) Equal(other Name) bool {
	return n.CompareTo(other) == 0
}

// CompareTo orders names in canonical (label-reversed, case-insensitive)
// order as used for zone storage and NSEC ordering (spec.md §3).
func (n Name) CompareTo(other Name) int {
	return canonicalCompare(n.canonical, other.canonical)
}

// canonicalCompare compares two names label-by-label from the root end,
// the ordering RFC 4034 §6.1 defines for NSEC "owner < qname < next".
// dns.CompareDomainName instead counts *matching* labels from the right,
// which is a different (and for our purposes, wrong) relation, so we
// implement the RFC ordering directly over dns.SplitDomainName's output.
// Labels are compared as raw octet strings, so presentation escapes such as
// "\046" are decoded (and escaped uppercase letters lowered) first.
func canonicalCompare(a, b string) int {
	la := dns.SplitDomainName(dns.CanonicalName(a))
	lb := dns.SplitDomainName(dns.CanonicalName(b))

	raw := func(l string) string {
		buf := make([]byte, maxLabelLength+2)
		off, err := dns.PackDomainName(l+".", buf, 0, nil, false)
		if err != nil || off < 2 {
			return l
		}
		octets := buf[1 : off-1]
		for k, c := range octets {
			if 'A' <= c && c <= 'Z' {
				octets[k] = c + 'a' - 'A'
			}
		}
		return string(octets)
	}

	for i, j := len(la)-1, len(lb)-1; i >= 0 && j >= 0; i, j = i-1, j-1 {
		if c := strings.Compare(raw(la[i]), raw(lb[j])); c != 0 {
			return c
		}
	}
	return len(la) - len(lb)
}

// Wild replaces the topmost k labels with a single "*" label, per spec.md
// §4.2. The result always has at least 2 labels: "*" plus the root/suffix.
func (n Name) Wild(k int) (Name, error) {
	if k < 1 {
		k = 1
	}
	if k >= len(n.indexes)-1 {
		k = len(n.indexes) - 2
	}
	if k < 0 {
		return Name{}, fmt.Errorf("name: %q has too few labels to wildcard", n.canonical)
	}
	suffix := n.canonical[n.indexes[len(n.indexes)-1-k]:]
	return New("*." + suffix)
}

// Concatenate joins a (relative, typically a single label such as "*") onto
// the front of b (normally absolute), failing if the result exceeds 255
// octets.
func Concatenate(a, b Name) (Name, error) {
	joined := strings.TrimSuffix(a.canonical, ".") + "." + b.canonical
	if len(joined) > maxNameLength {
		return Name{}, ErrNameTooLong
	}
	return New(joined)
}

// FromDNAME substitutes the owner's DNAME target in place of the DNAME's
// owner suffix within qname, per RFC 6672 §3.4. It fails with ErrNameTooLong
// if the result would exceed 255 octets.
func FromDNAME(qname, dnameOwner, target Name) (Name, error) {
	if !qname.Subdomain(dnameOwner) {
		return Name{}, fmt.Errorf("name: %q is not beneath DNAME owner %q", qname, dnameOwner)
	}
	prefixLabels := qname.Labels() - dnameOwner.Labels()
	if prefixLabels <= 0 {
		// The DNAME owner matched qname exactly; no substitution needed.
		return target, nil
	}
	prefix := qname.canonical[:qname.indexes[len(qname.indexes)-1-prefixLabels]]
	joined := prefix + target.canonical
	if len(joined) > maxNameLength {
		return Name{}, fmt.Errorf("%w: substituting %q for %q into %q", ErrNameTooLong, target, dnameOwner, qname)
	}
	return New(joined)
}
