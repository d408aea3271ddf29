package message

import (
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRR(t *testing.T, s string) dns.RR {
	t.Helper()
	rr, err := dns.NewRR(s)
	require.NoError(t, err)
	return rr
}

func testMessage(t *testing.T) *dns.Msg {
	m := new(dns.Msg)
	m.SetQuestion("example.com.", dns.TypeA)
	for i := 0; i < 20; i++ {
		m.Answer = append(m.Answer, newRR(t, "example.com. 300 IN A 192.0.2.1"))
	}
	return m
}

func TestPackWithBudget_NoTruncationNeeded(t *testing.T) {
	msg := New(testMessage(t))
	full, err := msg.Msg.Pack()
	require.NoError(t, err)

	out, truncated, err := msg.PackWithBudget(len(full) + 10)
	require.NoError(t, err)
	assert.False(t, truncated)
	assert.Equal(t, full, out)
}

func TestPackWithBudget_SetsTCAndZeroesSections(t *testing.T) {
	msg := New(testMessage(t))

	headerOnly := new(dns.Msg)
	headerOnly.SetQuestion("example.com.", dns.TypeA)
	hdrBytes, err := headerOnly.Pack()
	require.NoError(t, err)

	// A budget only a little bigger than the bare header forces every
	// section to be dropped and TC to be set.
	out, truncated, err := msg.PackWithBudget(len(hdrBytes) + 1)
	require.NoError(t, err)
	assert.True(t, truncated)

	var parsed dns.Msg
	require.NoError(t, parsed.Unpack(out))
	assert.True(t, parsed.Truncated)
	assert.Empty(t, parsed.Answer)
	assert.Empty(t, parsed.Ns)
	assert.Empty(t, parsed.Extra)
}

func TestPackWithBudget_TooSmallForHeader(t *testing.T) {
	msg := New(testMessage(t))
	_, _, err := msg.PackWithBudget(2)
	assert.ErrorIs(t, err, ErrNoRoomForHeader)
}

func TestGroupByRRset_KeepsSetsIntact(t *testing.T) {
	records := []dns.RR{
		newRR(t, "a.example.com. 300 IN A 192.0.2.1"),
		newRR(t, "a.example.com. 300 IN A 192.0.2.2"),
		newRR(t, "b.example.com. 300 IN A 192.0.2.3"),
	}
	groups := groupByRRset(records)
	require.Len(t, groups, 2)
	assert.Len(t, groups[0], 2)
	assert.Len(t, groups[1], 1)
}
