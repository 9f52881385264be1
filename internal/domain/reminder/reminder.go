package reminder

import "fmt"

// Thresholds is the fixed descending set of days-remaining values that
// trigger a dispatch cycle. Constant for the process lifetime.
var Thresholds = []int{30, 14, 7, 3, 1}

// Tracker records which thresholds have already fired so each one notifies at
// most once per run, no matter how many ticks land on the same day. It is
// owned by the caller and is not safe for concurrent use; the single
// scheduler goroutine is the only writer.
type Tracker struct {
	thresholds []int
	fired      map[int]bool
}

func NewTracker(thresholds []int) *Tracker {
	return &Tracker{
		thresholds: thresholds,
		fired:      make(map[int]bool),
	}
}

// Claim scans the thresholds in order and marks-and-returns the first unfired
// one exactly matching daysRemaining. Thresholds the process never saw (it
// started too late) are simply never matched: there is no retroactive firing.
func (t *Tracker) Claim(daysRemaining int) (int, bool) {
	for _, threshold := range t.thresholds {
		if daysRemaining == threshold && !t.fired[threshold] {
			t.fired[threshold] = true
			return threshold, true
		}
	}
	return 0, false
}

// Fired reports whether the given threshold has already been claimed.
func (t *Tracker) Fired(threshold int) bool {
	return t.fired[threshold]
}

// ComposeMessage renders the notification text for a days-remaining value.
func ComposeMessage(days int) string {
	switch {
	case days < 0:
		return "Tuya IOT expired"
	case days == 0:
		return "Tuya IOT expires today"
	default:
		return fmt.Sprintf("Tuya IOT expires in %d days", days)
	}
}
