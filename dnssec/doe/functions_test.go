package doe

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOwnerOrder_SortsCanonically(t *testing.T) {
	domains := []string{
		"z.example",
		"z.example",
		`xxx.qazz.uk`,
		"yljkjljk.a.example",
		"Z.a.example",
		`\200.z.example`,
		"zABC.a.EXAMPLE",
		`t\100.example`,
		`\001.z.example`,
		"*.z.example",
		`\000.xxx.qazz.uk`,
		"*.Z.a.example",
		"example",
	}

	slices.SortFunc(domains, ownerOrder)

	expected := []string{
		"example",
		"yljkjljk.a.example",
		"Z.a.example",
		"*.Z.a.example",
		"zABC.a.EXAMPLE",
		`t\100.example`,
		"z.example",
		"z.example",
		`\001.z.example`,
		"*.z.example",
		`\200.z.example`,
		`xxx.qazz.uk`,
		`\000.xxx.qazz.uk`,
	}

	assert.Equal(t, expected, domains)
}

func TestOwnerOrder_Equal(t *testing.T) {
	assert.Equal(t, 0, ownerOrder("example.com.", "EXAMPLE.com."))
}

func TestWildcardName(t *testing.T) {
	assert.Equal(t, "*.example.com", wildcardName("text.example.com"))
	assert.Equal(t, "*.b.c.d.e.example.com.", wildcardName("a.b.c.d.e.example.com."))
	assert.Equal(t, "*.", wildcardName("com."))
}
