// Package dungeon maps a revealed seed and party aggregates to a procedurally
// generated dungeon layout. The mapping is deterministic and deliberately
// non-cryptographic: the seed's unpredictability comes entirely from the
// encrypted aggregation protocol, and this package just renders it.
package dungeon

import (
	"math/rand"
	"strings"
)

// Tile values used in the layout grid.
const (
	TileWall     = '#'
	TileFloor    = '.'
	TileEntrance = '@'
	TileTreasure = '$'
	TileMonster  = 'M'
)

// Room is a rectangular open area in the dungeon grid.
type Room struct {
	X, Y          int
	Width, Height int
}

func (r Room) centre() (int, int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Layout is a generated dungeon: a tile grid plus the room list.
type Layout struct {
	Width  int
	Height int
	Rooms  []Room
	grid   [][]byte
}

// Params tune generation from the revealed party aggregates. Stronger
// parties get more monsters, more agile parties get more corridors, and
// intellect adds treasure.
type Params struct {
	Strength  uint64
	Agility   uint64
	Intellect uint64
}

const (
	gridWidth  = 48
	gridHeight = 20
	minRooms   = 4
	maxRooms   = 9
)

// Generate builds the layout for a seed. The same seed and params always
// produce the same layout.
func Generate(seed uint64, params Params) *Layout {
	rng := rand.New(rand.NewSource(int64(seed)))

	l := &Layout{Width: gridWidth, Height: gridHeight}
	l.grid = make([][]byte, gridHeight)
	for y := range l.grid {
		l.grid[y] = []byte(strings.Repeat(string(TileWall), gridWidth))
	}

	roomCount := minRooms + rng.Intn(maxRooms-minRooms+1)
	for i := 0; i < roomCount; i++ {
		room := Room{
			Width:  4 + rng.Intn(8),
			Height: 3 + rng.Intn(4),
		}
		room.X = 1 + rng.Intn(gridWidth-room.Width-2)
		room.Y = 1 + rng.Intn(gridHeight-room.Height-2)
		l.carveRoom(room)

		if len(l.Rooms) > 0 {
			prev := l.Rooms[len(l.Rooms)-1]
			l.carveCorridor(rng, prev, room)
		}
		l.Rooms = append(l.Rooms, room)
	}

	// Extra connectivity for agile parties.
	extraCorridors := int(params.Agility % 4)
	for i := 0; i < extraCorridors && len(l.Rooms) > 2; i++ {
		a := l.Rooms[rng.Intn(len(l.Rooms))]
		b := l.Rooms[rng.Intn(len(l.Rooms))]
		l.carveCorridor(rng, a, b)
	}

	l.placeFeatures(rng, params)
	return l
}

func (l *Layout) carveRoom(r Room) {
	for y := r.Y; y < r.Y+r.Height; y++ {
		for x := r.X; x < r.X+r.Width; x++ {
			l.grid[y][x] = TileFloor
		}
	}
}

func (l *Layout) carveCorridor(rng *rand.Rand, from, to Room) {
	x, y := from.centre()
	tx, ty := to.centre()

	// L-shaped corridor, horizontal-first or vertical-first at random.
	if rng.Intn(2) == 0 {
		l.carveHorizontal(x, tx, y)
		l.carveVertical(y, ty, tx)
	} else {
		l.carveVertical(y, ty, x)
		l.carveHorizontal(x, tx, ty)
	}
}

func (l *Layout) carveHorizontal(from, to, y int) {
	if from > to {
		from, to = to, from
	}
	for x := from; x <= to; x++ {
		l.grid[y][x] = TileFloor
	}
}

func (l *Layout) carveVertical(from, to, x int) {
	if from > to {
		from, to = to, from
	}
	for y := from; y <= to; y++ {
		l.grid[y][x] = TileFloor
	}
}

func (l *Layout) placeFeatures(rng *rand.Rand, params Params) {
	if len(l.Rooms) == 0 {
		return
	}

	ex, ey := l.Rooms[0].centre()
	l.grid[ey][ex] = TileEntrance

	monsters := 1 + int(params.Strength%6)
	treasures := 1 + int(params.Intellect%4)
	l.scatter(rng, TileMonster, monsters)
	l.scatter(rng, TileTreasure, treasures)
}

func (l *Layout) scatter(rng *rand.Rand, tile byte, count int) {
	for i := 0; i < count; i++ {
		room := l.Rooms[rng.Intn(len(l.Rooms))]
		x := room.X + rng.Intn(room.Width)
		y := room.Y + rng.Intn(room.Height)
		if l.grid[y][x] == TileFloor {
			l.grid[y][x] = tile
		}
	}
}

// TileAt returns the tile at the given coordinates.
func (l *Layout) TileAt(x, y int) byte {
	return l.grid[y][x]
}

// Render returns the layout as printable ASCII, one row per line.
func (l *Layout) Render() string {
	var sb strings.Builder
	for _, row := range l.grid {
		sb.Write(row)
		sb.WriteByte('\n')
	}
	return sb.String()
}
