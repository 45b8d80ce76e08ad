package client

import "time"

// defaultBackoff is the fixed reconnect delay sequence. It caps at 10s
// instead of growing unbounded.
var defaultBackoff = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	4 * time.Second,
	8 * time.Second,
	10 * time.Second,
	10 * time.Second,
}

// backoffDelay returns the base delay for the given 0-based attempt. Past
// the end of the sequence the last (capped) value repeats.
func backoffDelay(attempt int, seq []time.Duration) time.Duration {
	if len(seq) == 0 {
		seq = defaultBackoff
	}
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= len(seq) {
		attempt = len(seq) - 1
	}
	return seq[attempt]
}
