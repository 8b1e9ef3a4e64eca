package influence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddInfluenceLinear(t *testing.T) {
	m := New(50, 50)
	m.AddInfluence(20, 20, 10, 100, Linear)

	assert.Equal(t, 100.0, m.At(20, 20), "full strength at the centre")
	assert.Equal(t, 50.0, m.At(25, 20), "half way to the radius")
	assert.Equal(t, 50.0, m.At(20, 15))
	assert.Equal(t, 0.0, m.At(30, 20), "radius itself is outside")
	assert.Equal(t, 0.0, m.At(10, 20))
}

func TestAddInfluenceConstantClipsToGrid(t *testing.T) {
	m := New(10, 10)
	m.AddInfluence(0, 0, 3, 5, Constant)

	assert.Equal(t, 5.0, m.At(0, 0))
	assert.Equal(t, 5.0, m.At(2, 2), "r²=8 is inside radius 3")
	assert.Equal(t, 0.0, m.At(3, 0))
	// 3x3 corner quadrant, every cell inside r² < 9
	assert.Equal(t, 45.0, m.SumInfluence(0, 0, 3))
}

func TestAddInfluenceNegativeStrength(t *testing.T) {
	m := New(40, 40)
	m.AddInfluence(10, 10, 20, -100, Constant)

	assert.Equal(t, -100.0, m.At(10, 10))
	assert.Equal(t, -100.0, m.At(0, 0))
	assert.Equal(t, 0.0, m.At(39, 39))
}

func TestAddInfluenceCentreOffGrid(t *testing.T) {
	m := New(10, 10)
	assert.NotPanics(t, func() {
		m.AddInfluence(-5, 12, 8, 40, Linear)
		m.AddInfluence(100, 100, 3, 40, Linear)
	})
	assert.Greater(t, m.At(0, 9), 0.0)
}

func TestAddInfluenceNoopForEmptyRadius(t *testing.T) {
	m := New(5, 5)
	m.AddInfluence(2, 2, 0, 10, Linear)
	m.AddInfluence(2, 2, -1, 10, Constant)
	for _, v := range m.Cells() {
		assert.Zero(t, v)
	}
}

func TestInfluenceConservation(t *testing.T) {
	m := New(64, 64)
	m.AddInfluence(30, 30, 13, 133, Linear)
	m.AddInfluence(12, 40, 10, 7, Linear)
	m.AddInfluence(50, 8, 20, -100, Constant)
	m.AddInfluence(33, 29, 10, 21, Quadratic)
	before := m.Clone()

	m.AddInfluence(31, 33, 13, 267, Linear)
	m.AddInfluence(31, 33, 13, -267, Linear)

	assert.Equal(t, before.Cells(), m.Cells())
}

func FuzzInfluenceConservation(f *testing.F) {
	f.Add(int8(10), int8(10), uint8(13), int16(100))
	f.Add(int8(-3), int8(60), uint8(40), int16(-7))
	f.Add(int8(0), int8(0), uint8(1), int16(1))
	f.Add(int8(63), int8(63), uint8(255), int16(32767))

	f.Fuzz(func(t *testing.T, cx, cz int8, radius uint8, strength int16) {
		m := New(64, 64)
		m.AddInfluence(20, 20, 13, 1333, Linear)
		m.AddInfluence(40, 45, 10, 3, Linear)
		before := m.Clone()

		for _, falloff := range []Falloff{Linear, Constant, Quadratic} {
			m.AddInfluence(int(cx), int(cz), int(radius), float64(strength), falloff)
			m.AddInfluence(int(cx), int(cz), int(radius), -float64(strength), falloff)
		}

		for i, v := range m.Cells() {
			if v != before.Cells()[i] {
				t.Fatalf("cell %d drifted: got %v, want %v", i, v, before.Cells()[i])
			}
		}
	})
}

func TestMultiply(t *testing.T) {
	suit := New(10, 10)
	suit.AddInfluence(5, 5, 5, 27, Linear)
	dens := New(10, 10)
	dens.AddInfluence(6, 5, 2, 10, Constant)

	require.NoError(t, suit.Multiply(dens))

	assert.Equal(t, 270.0, suit.At(5, 5))
	assert.Zero(t, suit.At(2, 5), "no density zeroes suitability")
	assert.Zero(t, suit.At(5, 1))
}

func TestMultiplyDimensionMismatch(t *testing.T) {
	a := New(10, 10)
	a.Set(1, 1, 3)
	err := a.Multiply(New(10, 11))
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Equal(t, 3.0, a.At(1, 1), "map untouched on error")
}

func TestSumInfluence(t *testing.T) {
	m := New(20, 20)
	m.Set(10, 10, 4)
	m.Set(11, 10, 6)
	m.Set(13, 10, 100)

	assert.Equal(t, 10.0, m.SumInfluence(10, 10, 3))
	assert.Equal(t, 110.0, m.SumInfluence(10, 10, 4))
	assert.Zero(t, m.SumInfluence(10, 10, 0))
}

func TestExpandInfluences(t *testing.T) {
	m := New(11, 11)
	m.Set(5, 5, 3)
	m.ExpandInfluences()

	tests := []struct {
		x, z int
		want float64
	}{
		{5, 5, 3},
		{6, 5, 2},
		{7, 5, 1},
		{8, 5, 0},
		{4, 5, 2},
		{5, 3, 1},
		{6, 6, 1},
		{7, 6, 0},
		{0, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, m.At(tt.x, tt.z), "cell (%d,%d)", tt.x, tt.z)
	}
}

func TestExpandInfluencesKeepsLargerValues(t *testing.T) {
	m := New(5, 1)
	m.Set(0, 0, 4)
	m.Set(3, 0, 9)
	m.ExpandInfluences()

	assert.Equal(t, []float64{6, 7, 8, 9, 8}, m.Cells())
}

func TestFindBestTile(t *testing.T) {
	m := New(10, 10)
	m.Set(2, 2, 5)
	m.Set(7, 7, 9)
	m.Set(8, 1, 9)

	tile, err := m.FindBestTile(4, nil)
	require.NoError(t, err)
	assert.Equal(t, Tile{Index: m.Index(8, 1), X: 8, Z: 1, Value: 9}, tile, "ties go to the first cell in scan order")

	obs := New(10, 10)
	obs.Set(8, 1, 1)
	tile, err = m.FindBestTile(4, obs)
	require.NoError(t, err)
	assert.Equal(t, 7, tile.X)
	assert.Equal(t, 7, tile.Z)
}

func TestFindBestTileNoResult(t *testing.T) {
	m := New(4, 4)
	m.Set(1, 1, -3)
	_, err := m.FindBestTile(4, nil)
	assert.ErrorIs(t, err, ErrNoTile, "non-positive cells are never picked")

	m.Set(2, 2, 10)
	obs := New(4, 4)
	for i := range obs.Cells() {
		obs.Cells()[i] = 1
	}
	_, err = m.FindBestTile(4, obs)
	assert.ErrorIs(t, err, ErrNoTile, "every cell obstructed")

	_, err = m.FindBestTile(4, New(3, 3))
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestFindBestTilesSeparation(t *testing.T) {
	m := New(20, 1)
	for x := 0; x < 20; x++ {
		m.Set(x, 0, float64(20-x))
	}

	tiles, err := m.FindBestTiles(3, 4, nil)
	require.NoError(t, err)
	require.Len(t, tiles, 3)
	assert.Equal(t, 0, tiles[0].X)
	assert.Equal(t, 4, tiles[1].X)
	assert.Equal(t, 8, tiles[2].X)

	none, err := m.FindBestTiles(0, 4, nil)
	assert.NoError(t, err)
	assert.Empty(t, none)
}

func TestCoordinateConversion(t *testing.T) {
	x, z := WorldToCell(10, 13.9, 4)
	assert.Equal(t, 3, x, "2.5 rounds up")
	assert.Equal(t, 3, z)

	m := New(10, 10)
	wx, wz := m.CellCenter(23, 4)
	assert.Equal(t, 14.0, wx)
	assert.Equal(t, 10.0, wz)
}

func TestImage(t *testing.T) {
	m := New(3, 2)
	m.Set(0, 0, 1000)
	m.Set(1, 0, 10)
	m.Set(2, 1, -5)

	img := m.Image(2)
	assert.Equal(t, uint8(255), img.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(20), img.GrayAt(1, 0).Y)
	assert.Equal(t, uint8(0), img.GrayAt(2, 1).Y)
}

func TestParseFalloff(t *testing.T) {
	for _, f := range []Falloff{Linear, Constant, Quadratic} {
		got, err := ParseFalloff(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
	_, err := ParseFalloff("cubic")
	assert.Error(t, err)
}

func BenchmarkAddInfluence(b *testing.B) {
	m := New(256, 256)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.AddInfluence(128, 128, 13, 133, Linear)
	}
}

func BenchmarkFindBestTile(b *testing.B) {
	m := New(256, 256)
	for i := 0; i < 40; i++ {
		m.AddInfluence(i*6, (i*37)%256, 13, 100, Linear)
	}
	obs := New(256, 256)
	obs.AddInfluence(128, 128, 30, 4, Constant)
	obs.ExpandInfluences()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = m.FindBestTile(4, obs)
	}
}
