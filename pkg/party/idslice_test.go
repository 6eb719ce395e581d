package party

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDSlice_GetIndex(t *testing.T) {
	tests := []struct {
		name        string
		partyIDs    IDSlice
		requestedID ID
		want        int
	}{
		{"empty", IDSlice{}, 1, -1},
		{"first", IDSlice{1, 2, 3}, 1, 0},
		{"last", IDSlice{1, 2, 99}, 99, 2},
		{"missing", IDSlice{1, 2, 99}, 3, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.partyIDs.GetIndex(tt.requestedID))
		})
	}
}

func TestIDSlice_Valid(t *testing.T) {
	assert.True(t, IDSlice{}.Valid())
	assert.True(t, IDSlice{1, 3, 99}.Valid())
	assert.False(t, IDSlice{0, 1}.Valid())
	assert.False(t, IDSlice{2, 1}.Valid())
	assert.False(t, IDSlice{1, 1}.Valid())
}

func TestIDSlice_Helpers(t *testing.T) {
	ids := NewIDSlice([]ID{3, 1, 2})
	assert.Equal(t, IDSlice{1, 2, 3}, ids)
	assert.True(t, ids.Contains(1, 3))
	assert.False(t, ids.Contains(4))
	assert.Equal(t, IDSlice{1, 3}, ids.Remove(2))
	assert.Equal(t, IDSlice{1, 2, 3, 4}, Range(1, 4))
	assert.Equal(t, "[1,2,3]", ids.String())

	id, err := FromString("99")
	assert.NoError(t, err)
	assert.Equal(t, ID(99), id)
}
