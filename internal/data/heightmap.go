package data

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// Heightmap is a regular grid of ground heights. Row r, column c sits at
// world (OriginX + c*Cell, OriginZ + r*Cell).
type Heightmap struct {
	OriginX float64
	OriginZ float64
	Cell    float64
	cols    int
	rows    int
	h       []float64 // row-major
}

// LoadHeightmap reads a CSV height file: one grid row per line, comma
// separated values. Blank lines and lines starting with '#' are skipped.
// Short rows are padded with zeros; unparsable values read as zero.
func LoadHeightmap(path string, originX, originZ, cell float64) (*Heightmap, error) {
	if cell <= 0 {
		return nil, fmt.Errorf("heightmap %s: cell size must be positive", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read heightmap %s: %w", path, err)
	}
	defer f.Close()

	var rows [][]float64
	width := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		toks := strings.Split(line, ",")
		row := make([]float64, len(toks))
		for i, tok := range toks {
			v, err := strconv.ParseFloat(strings.TrimSpace(tok), 64)
			if err != nil {
				v = 0
			}
			row[i] = v
		}
		width = max(width, len(row))
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan heightmap %s: %w", path, err)
	}
	if len(rows) == 0 || width == 0 {
		return nil, fmt.Errorf("heightmap %s: no data", path)
	}

	hm := &Heightmap{
		OriginX: originX,
		OriginZ: originZ,
		Cell:    cell,
		cols:    width,
		rows:    len(rows),
		h:       make([]float64, width*len(rows)),
	}
	for r, row := range rows {
		copy(hm.h[r*width:], row)
	}
	return hm, nil
}

// Size returns the grid dimensions.
func (hm *Heightmap) Size() (cols, rows int) { return hm.cols, hm.rows }

func (hm *Heightmap) at(c, r int) float64 {
	c = min(max(c, 0), hm.cols-1)
	r = min(max(r, 0), hm.rows-1)
	return hm.h[r*hm.cols+c]
}

// Height samples the grid bilinearly. Points off the grid clamp to the edge.
func (hm *Heightmap) Height(x, z float64) float64 {
	gx := (x - hm.OriginX) / hm.Cell
	gz := (z - hm.OriginZ) / hm.Cell
	c0 := int(math.Floor(gx))
	r0 := int(math.Floor(gz))
	fx := min(max(gx-float64(c0), 0), 1)
	fz := min(max(gz-float64(r0), 0), 1)
	if c0 < 0 || c0 >= hm.cols-1 {
		fx = 0
	}
	if r0 < 0 || r0 >= hm.rows-1 {
		fz = 0
	}

	top := hm.at(c0, r0)*(1-fx) + hm.at(c0+1, r0)*fx
	bottom := hm.at(c0, r0+1)*(1-fx) + hm.at(c0+1, r0+1)*fx
	return top*(1-fz) + bottom*fz
}
