// Package parallel provides the data-parallel dispatch used by the CPU
// rendition of the resampling stages.
//
// A dispatch covers a width x height grid with one lane per element, the
// way a compute dispatch launches one invocation per pixel. The grid is
// cut into tiles that run on a work-stealing WorkerPool; lanes of one
// dispatch never synchronise with each other.
package parallel

// Tile dimensions. 32x8 keeps a tile's rows contiguous in the row-major
// stores while giving the pool enough tiles to balance on small frames.
const (
	TileWidth  = 32
	TileHeight = 8
)

// Tile is a rectangular range of lanes.
type Tile struct {
	X0, Y0 int
	X1, Y1 int // exclusive
}

// Width returns the number of columns in the tile.
func (t Tile) Width() int { return t.X1 - t.X0 }

// Height returns the number of rows in the tile.
func (t Tile) Height() int { return t.Y1 - t.Y0 }

// Contains reports whether (x, y) lies in the tile.
func (t Tile) Contains(x, y int) bool {
	return x >= t.X0 && x < t.X1 && y >= t.Y0 && y < t.Y1
}

// Tiles splits a w x h grid into tiles in row-major order. Edge tiles are
// clipped to the grid.
func Tiles(w, h int) []Tile {
	if w <= 0 || h <= 0 {
		return nil
	}
	tx := (w + TileWidth - 1) / TileWidth
	ty := (h + TileHeight - 1) / TileHeight
	tiles := make([]Tile, 0, tx*ty)
	for y := 0; y < h; y += TileHeight {
		for x := 0; x < w; x += TileWidth {
			tiles = append(tiles, Tile{
				X0: x, Y0: y,
				X1: min(x+TileWidth, w), Y1: min(y+TileHeight, h),
			})
		}
	}
	return tiles
}
