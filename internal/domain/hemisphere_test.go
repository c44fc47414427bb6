package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnubald/icenet/internal/domain"
)

func TestParseHemisphere(t *testing.T) {
	h, err := domain.ParseHemisphere("north")
	require.NoError(t, err)
	assert.Equal(t, domain.HemisphereNorth, h)

	h, err = domain.ParseHemisphere("south")
	require.NoError(t, err)
	assert.Equal(t, domain.HemisphereSouth, h)

	for _, bad := range []string{"", "North", "both", "antarctic"} {
		_, err := domain.ParseHemisphere(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestHemisphereString(t *testing.T) {
	assert.Equal(t, "north", domain.HemisphereNorth.String())
	assert.Equal(t, "south", domain.HemisphereSouth.String())
	assert.Equal(t, "both", domain.HemisphereBoth.String())
	assert.Equal(t, "none", domain.HemisphereNone.String())
}

func TestHemisphereValid(t *testing.T) {
	assert.True(t, domain.HemisphereNorth.Valid())
	assert.True(t, domain.HemisphereSouth.Valid())
	assert.False(t, domain.HemisphereBoth.Valid())
	assert.False(t, domain.HemisphereNone.Valid())
}
