// sim/obj.go
// Copyright(c) 2023-2025 slipstream contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/slipstream-vr/slipstream/math"
)

// Track path meshes are authored as line-mode OBJ files where each
// control point is a chunk of four vertices forming a little axes
// gizmo: vertex 1 is the origin and vertices 0, 2, and 3 are offset
// along the gizmo's local axes. That lets track editors pose control
// points with regular modeling tools and no custom exporter.

// ParsePathOBJ reads an OBJ path mesh and returns its vertices in file
// order. Only "v" records matter; line elements, comments, and the
// like are skipped.
func ParsePathOBJ(r io.Reader) ([][3]float32, error) {
	var verts [][3]float32
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		f := strings.Fields(sc.Text())
		if len(f) == 0 || f[0] != "v" {
			continue
		}
		if len(f) < 4 {
			return nil, fmt.Errorf("line %d: %w: vertex with %d coordinates",
				line, ErrMalformedPathOBJ, len(f)-1)
		}
		var v [3]float32
		for i := range v {
			c, err := strconv.ParseFloat(f[1+i], 32)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w: %v", line, ErrMalformedPathOBJ, err)
			}
			v[i] = float32(c)
		}
		verts = append(verts, v)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return verts, nil
}

// PathMeshToControlPoints converts an axes-gizmo vertex list into
// oriented control points, one per chunk of four vertices. The gizmo's
// drawn axes don't coincide with the track frame, so the frame is
// reshuffled here: track-forward comes from the negated fourth vertex
// and track-right from the negated first.
func PathMeshToControlPoints(verts [][3]float32) ([]math.Transform, error) {
	if len(verts) == 0 || len(verts)%4 != 0 {
		return nil, fmt.Errorf("%w: %d vertices, expected a positive multiple of 4",
			ErrMalformedPathOBJ, len(verts))
	}

	ctrlps := make([]math.Transform, 0, len(verts)/4)
	for i := 0; i < len(verts); i += 4 {
		axes := verts[i : i+4]
		origin := axes[1]

		x := math.Normalize3f(math.Scale3f(math.Sub3f(axes[3], origin), -1))
		y := math.Normalize3f(math.Sub3f(axes[2], origin))
		z := math.Normalize3f(math.Scale3f(math.Sub3f(axes[0], origin), -1))

		ctrlps = append(ctrlps, math.Transform{
			Pos:    origin,
			Orient: math.MakeQuatFromAxes(x, y, z),
		})
	}
	return ctrlps, nil
}

// LoadPathOBJ parses an OBJ path mesh into a track curve.
func LoadPathOBJ(r io.Reader) (*Curve, error) {
	verts, err := ParsePathOBJ(r)
	if err != nil {
		return nil, err
	}
	ctrlps, err := PathMeshToControlPoints(verts)
	if err != nil {
		return nil, err
	}
	return MakeCurve(ctrlps)
}
