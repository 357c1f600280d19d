// sim/track.go
// Copyright(c) 2023-2025 slipstream contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/slipstream-vr/slipstream/log"
	"github.com/slipstream-vr/slipstream/math"
	"github.com/slipstream-vr/slipstream/util"
)

// DefaultTrackName is the track served when the host doesn't name one.
const DefaultTrackName = "loop"

// TrackRegistry loads and caches track curves. Parsed control points
// are also cached on disk, keyed by the source file's name, so repeat
// server launches skip the OBJ parse when the file hasn't changed.
type TrackRegistry struct {
	tracks *lru.Cache[string, *Curve]
	lg     *log.Logger
}

func NewTrackRegistry(lg *log.Logger) *TrackRegistry {
	// Plenty for one server; eviction only matters for long-lived hosts
	// cycling through many community tracks.
	cache, _ := lru.New[string, *Curve](16)
	return &TrackRegistry{tracks: cache, lg: lg}
}

// Load returns the curve for the track path mesh at path, which may be
// zstd compressed. The empty string and DefaultTrackName both give the
// built-in loop.
func (tr *TrackRegistry) Load(path string) (*Curve, error) {
	if path == "" || path == DefaultTrackName {
		return DefaultCircuit(), nil
	}

	if curve, ok := tr.tracks.Get(path); ok {
		return curve, nil
	}

	curve, err := tr.loadOBJ(path)
	if err != nil {
		if os.IsNotExist(err) {
			err = ErrNoSuchTrack
		}
		return nil, err
	}

	tr.tracks.Add(path, curve)
	return curve, nil
}

func (tr *TrackRegistry) loadOBJ(path string) (*Curve, error) {
	cacheName := "tracks/" + strings.TrimSuffix(filepath.Base(path), ".zst") + ".msgpack"

	if st, err := os.Stat(path); err == nil {
		var ctrlps []math.Transform
		if cached, cerr := util.CacheRetrieveObject(cacheName, &ctrlps); cerr == nil &&
			cached.After(st.ModTime()) {
			tr.lg.Debugf("%s: track loaded from cache", path)
			return MakeCurve(ctrlps)
		}
	}

	b, err := util.LoadResourceBytes(path)
	if err != nil {
		return nil, err
	}
	curve, err := LoadPathOBJ(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}

	if err := util.CacheStoreObject(cacheName, curve.ctrlps); err != nil {
		tr.lg.Warnf("%s: unable to cache track: %v", cacheName, err)
	}
	return curve, nil
}

// DefaultCircuit returns the built-in track: a flat ring in the xz
// plane with control points spaced a segment length apart, each frame's
// forward axis following the direction of travel.
func DefaultCircuit() *Curve {
	const n = 64
	radius := float32(n) * TrackSegmentLength / (2 * math.Pi)

	ctrlps := make([]math.Transform, n)
	for i := range ctrlps {
		theta := 2 * math.Pi * float32(i) / n
		sin, cos := math.Sin(theta), math.Cos(theta)
		ctrlps[i] = math.Transform{
			Pos: [3]float32{radius * cos, 0, radius * sin},
			Orient: math.MakeQuatAxisAngle([3]float32{0, 1, 0},
				-(theta + math.Pi/2)),
		}
	}

	curve, err := MakeCurve(ctrlps)
	if err != nil {
		// n is a compile-time constant well above the minimum.
		panic(err)
	}
	return curve
}
