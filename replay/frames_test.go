package replay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDiscardsLegacyPreamble(t *testing.T) {
	raw, err := DecodeText("0|256|-500|0,-1|256|-500|0,-1171|257.0417|124.7764|1,13|256.8854|124.8789|1")
	require.NoError(t, err)
	require.Len(t, raw, 4)

	frames := Normalize(raw)
	require.Len(t, frames, 1)
	fr := frames[0]
	assert.Equal(t, -1159.0, fr.Time)
	assert.Equal(t, float64(float32(256.8854)), fr.Pos.X)
	assert.Equal(t, float64(float32(124.8789)), fr.Pos.Y)
	assert.Equal(t, ButtonLeft, fr.Buttons)
}

func TestNormalizeAccumulatesDeltas(t *testing.T) {
	raw := []RawFrame{
		{TimeDelta: 0},
		{TimeDelta: -1},
		{TimeDelta: -1171},
		{TimeDelta: 13, X: 10, Y: 20, Keys: 0},
		{TimeDelta: 16, X: 11, Y: 21, Keys: 4},  // K1 -> left
		{TimeDelta: 16, X: 12, Y: 22, Keys: 10}, // M2|K2 -> right
	}
	frames := Normalize(raw)
	require.Len(t, frames, 3)
	assert.Equal(t, -1159.0, frames[0].Time)
	assert.Equal(t, -1143.0, frames[1].Time)
	assert.Equal(t, ButtonLeft, frames[1].Buttons)
	assert.Equal(t, -1127.0, frames[2].Time)
	assert.Equal(t, ButtonRight, frames[2].Buttons)
}

func TestButtonsHeld(t *testing.T) {
	b := ButtonLeft | ButtonRight
	assert.True(t, b.Held(0))
	assert.True(t, b.Held(1))
	assert.False(t, Buttons(0).Held(0))
	assert.False(t, ButtonLeft.Held(1))
}

func TestDecodeTextRejectsGarbage(t *testing.T) {
	_, err := DecodeText("1|2|3")
	assert.Error(t, err)
	_, err = DecodeText("a|2|3|4")
	assert.Error(t, err)

	frames, err := DecodeText(" ")
	require.NoError(t, err)
	assert.Empty(t, frames)
}
