package dungeon

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateDeterministic(t *testing.T) {
	params := Params{Strength: 9, Agility: 8, Intellect: 6}

	first := Generate(78, params)
	second := Generate(78, params)
	require.Equal(t, first.Render(), second.Render())
	require.Equal(t, first.Rooms, second.Rooms)
}

func TestGenerateSeedSensitive(t *testing.T) {
	params := Params{Strength: 9, Agility: 8, Intellect: 6}

	require.NotEqual(t, Generate(78, params).Render(), Generate(79, params).Render())
}

func TestLayoutWellFormed(t *testing.T) {
	l := Generate(12345, Params{Strength: 3, Agility: 1, Intellect: 7})

	require.GreaterOrEqual(t, len(l.Rooms), minRooms)
	require.LessOrEqual(t, len(l.Rooms), maxRooms)

	// Border stays walled; entrance exists.
	var entrances int
	for y := 0; y < l.Height; y++ {
		require.Equal(t, byte(TileWall), l.TileAt(0, y))
		require.Equal(t, byte(TileWall), l.TileAt(l.Width-1, y))
		for x := 0; x < l.Width; x++ {
			if l.TileAt(x, y) == TileEntrance {
				entrances++
			}
		}
	}
	for x := 0; x < l.Width; x++ {
		require.Equal(t, byte(TileWall), l.TileAt(x, 0))
		require.Equal(t, byte(TileWall), l.TileAt(x, l.Height-1))
	}
	require.Equal(t, 1, entrances)
}
