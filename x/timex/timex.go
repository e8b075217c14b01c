// Package timex provides the shared timestamp base for bus payloads.
package timex

import "time"

// NowMs returns the wall clock as milliseconds since the Unix epoch.
// Every TS field published on the bus carries this base.
func NowMs() int64 {
	return time.Now().UnixMilli()
}
