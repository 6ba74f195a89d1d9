package addresses

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveDeterministic(t *testing.T) {
	a := DeriveString(KindProject, "FOREST-001")
	b := DeriveString(KindProject, "FOREST-001")
	assert.Equal(t, a, b)
	assert.False(t, a.IsZero())
}

func TestDeriveKindSeparation(t *testing.T) {
	// Identical seed text under different kinds must not collide.
	project := DeriveString(KindProject, "FOREST-001")
	listing := DeriveString(KindListing, "FOREST-001")
	assert.NotEqual(t, project, listing)
}

func TestDeriveSeedSensitivity(t *testing.T) {
	base := DeriveString(KindProject, "FOREST-001")

	cases := []struct {
		name  string
		seeds []string
	}{
		{"different seed byte", []string{"FOREST-002"}},
		{"extra seed part", []string{"FOREST-001", ""}},
		{"split seed part", []string{"FOREST", "-001"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.NotEqual(t, base, DeriveString(KindProject, tc.seeds...))
		})
	}
}

func TestDerivePartBoundaries(t *testing.T) {
	// Length prefixing keeps ("ab","c") and ("a","bc") apart.
	assert.NotEqual(t,
		DeriveString(KindPurchase, "ab", "c"),
		DeriveString(KindPurchase, "a", "bc"))
}

func TestAddressEncodingRoundTrip(t *testing.T) {
	addr := DeriveString(KindRetirement, "FOREST-001", "owner")

	decoded, err := Decode(addr.String())
	require.NoError(t, err)
	assert.Equal(t, addr, decoded)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode("not-an-address")
	assert.Error(t, err)

	_, err = Decode("")
	assert.Error(t, err)
}

func TestMarshalText(t *testing.T) {
	addr := DeriveString(KindListing, "x")

	text, err := addr.MarshalText()
	require.NoError(t, err)

	var back Address
	require.NoError(t, back.UnmarshalText(text))
	assert.Equal(t, addr, back)
}
