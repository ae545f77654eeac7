package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsLocationType(t *testing.T) {
	assert.True(t, IsLocationType(EntityTypePlace))
	assert.False(t, IsLocationType(EntityTypePerson))
	assert.False(t, IsLocationType(EntityTypeOrganization))
	assert.False(t, IsLocationType("CITY"))
	assert.False(t, IsLocationType(""))
}
