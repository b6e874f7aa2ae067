// Package streak computes how a check-in moves a user's combo.
//
// Admission and continuity use different windows: a check-in is admitted
// once cooldown has elapsed since the last one, and it continues the combo
// as long as no more than twice the cooldown has elapsed.
package streak

import (
	"math"

	"github.com/okian/kegel/internal/domain/model"
)

// Ended describes a streak closed by a late check-in.
type Ended struct {
	StartMarker uint64
	ComboCount  uint64
	// EndTime is the last instant the streak could have been continued.
	EndTime uint64
}

// Outcome is the result of applying a check-in to a record.
type Outcome struct {
	Combo  uint64
	Marker uint64
	// Ended is non-nil when the previous streak was broken.
	Ended *Ended
}

// Continued reports whether the outcome extended an existing streak.
func (o Outcome) Continued() bool { return o.Combo > 1 }

// Advance applies a check-in at now to rec. fresh is the marker assigned if a
// new streak starts. Admission is not checked here.
func Advance(now uint64, rec model.UserRecord, cooldown, fresh uint64) Outcome {
	if !rec.HasCheckedIn() {
		return Outcome{Combo: 1, Marker: fresh}
	}
	if now-rec.LastCheckinTime <= window(cooldown) {
		return Outcome{Combo: rec.CurrentCombo + 1, Marker: rec.ComboStartMarker}
	}
	return Outcome{
		Combo:  1,
		Marker: fresh,
		Ended: &Ended{
			StartMarker: rec.ComboStartMarker,
			ComboCount:  rec.CurrentCombo,
			EndTime:     Deadline(rec.LastCheckinTime, cooldown),
		},
	}
}

// Admissible reports whether a check-in by rec at now respects the cooldown.
// A time of zero is a valid check-in time; only the count marks a newcomer.
func Admissible(now uint64, rec model.UserRecord, cooldown uint64) bool {
	if !rec.HasCheckedIn() {
		return true
	}
	last := rec.LastCheckinTime
	return now >= last && now-last >= cooldown
}

// NextAllowed returns the earliest time rec may check in again, or 0 for a
// user who never checked in.
func NextAllowed(rec model.UserRecord, cooldown uint64) uint64 {
	if !rec.HasCheckedIn() {
		return 0
	}
	return addSat(rec.LastCheckinTime, cooldown)
}

// Deadline returns the last instant a check-in still continues a streak
// whose latest check-in was at last.
func Deadline(last, cooldown uint64) uint64 {
	return addSat(last, window(cooldown))
}

func window(cooldown uint64) uint64 {
	return addSat(cooldown, cooldown)
}

func addSat(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}
