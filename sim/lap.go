// sim/lap.go
// Copyright(c) 2023-2025 slipstream contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"fmt"

	"github.com/slipstream-vr/slipstream/math"
)

const (
	// The finish line sits at this position along the track curve, in
	// control point units.
	FinishLineIndex = 10

	// A crossing only counts if the ship's nearest control point is
	// strictly within this many indices of the finish line. Keeps a
	// ship on a far section of a folded track from triggering the
	// finish plane.
	finishIndexWindow = 3

	// Laps to complete a race.
	NLaps = 3

	// The countdown display hangs over the track here, a little before
	// the finish line so it's in view from the spawn area.
	CountdownDisplayIndex = 6
)

// FinishLine returns the finish line's pose on the given track.
func FinishLine(path *Curve) math.Transform {
	return path.Lerp(FinishLineIndex)
}

// CountdownDisplayPose returns where a presentation layer should place
// the pre-race countdown display on the given track.
func CountdownDisplayPose(path *Curve) math.Transform {
	return path.Lerp(CountdownDisplayIndex)
}

// LapTracker watches a ship's position for finish line crossings. A
// crossing is a sign change of the ship's position along the finish
// line's local forward axis between consecutive samples, gated by
// proximity to the line.
type LapTracker struct {
	path      *Curve
	finishInv math.Transform
	last      [3]float32
}

func MakeLapTracker(path *Curve) LapTracker {
	return LapTracker{path: path, finishInv: FinishLine(path).Inverse()}
}

// Reset rebases the tracker at p, e.g. when the ship spawns; the next
// Advance call compares against p rather than wherever the ship was
// before.
func (lt *LapTracker) Reset(p [3]float32) {
	lt.last = p
}

// Advance samples the ship at p and reports whether it crossed the
// finish line since the previous sample. Crossings count only in the
// forward direction; backing up over the line and driving forward again
// yields a (bogus) second crossing, which race rules tolerate since the
// lap count only ever benefits the ship's own driver.
func (lt *LapTracker) Advance(p [3]float32) bool {
	lastX := lt.finishInv.TransformPoint(lt.last)[0]
	curX := lt.finishInv.TransformPoint(p)[0]
	lt.last = p

	if !(lastX < 0 && curX >= 0) {
		return false
	}
	nearest := lt.path.NearestControlPoint(p)
	return math.Abs(float32(nearest-FinishLineIndex)) < finishIndexWindow
}

// LapTime is a race time decomposed for display.
type LapTime struct {
	Minutes      int
	Seconds      int
	Milliseconds int
}

func DecomposeLapTime(t float32) LapTime {
	ms := int(t * 1000)
	return LapTime{
		Minutes:      ms / 60000,
		Seconds:      ms / 1000 % 60,
		Milliseconds: ms % 1000,
	}
}

func (lt LapTime) String() string {
	return fmt.Sprintf("%d:%02d.%03d", lt.Minutes, lt.Seconds, lt.Milliseconds)
}
