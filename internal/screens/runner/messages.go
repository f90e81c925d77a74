package runner

import "time"

// sessionStartedMsg is sent when engine startup (definition load, ledger
// check, snapshot restore or fresh build) has finished.
type sessionStartedMsg struct {
	Err error
}

// timerTickMsg is the 1-second heartbeat driving both countdowns.
type timerTickMsg time.Time
