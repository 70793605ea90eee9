package scanout

import "time"

// Stats is a snapshot of presenter counters, taken with the presenter's
// Stats method. Counters only ever increase while Run executes.
type Stats struct {
	// Frames is the number of frames presented.
	Frames uint64

	// Commits is the number of transactions (or page flips) submitted.
	Commits uint64

	// Modesets is the number of commits that performed a full output
	// reconfiguration. One, on a healthy run.
	Modesets uint64

	// FenceWaits is the number of CPU-side fence waits the loop
	// performed to serialize transactions.
	FenceWaits uint64

	// LastCommit is the duration of the most recent commit or flip
	// submission call.
	LastCommit time.Duration
}
