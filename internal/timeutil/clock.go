// Package timeutil provides microsecond timestamp helpers and the latency
// histogram shared across the ingestion pipeline.
package timeutil

import "time"

// NowUs returns the current wall-clock time in microseconds since the Unix
// epoch.
func NowUs() int64 {
	return time.Now().UnixMicro()
}
