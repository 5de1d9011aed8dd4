// Package compose builds the fixed-format status text posted for a metric
// channel. Length enforcement is not done here; the feed channel chunks
// over-length messages before sending.
package compose

import (
	"fmt"
	"os"
	"strconv"

	"trainfeed/internal/monitor"
)

// Compose renders the multi-line status message for one snapshot:
//
//	{hostID}
//	{jobName}
//	E:{epoch}, T:{H:MM:SS}
//	{channel}: {value}
//	min: {min} [{minIndex}]
//
// Output is deterministic for a given snapshot.
func Compose(hostID, jobName string, s monitor.Snapshot) string {
	return fmt.Sprintf("%s\n%s\nE:%d, T:%s\n%s: %.6f\nmin: %.6f [%d]",
		hostID, jobName,
		s.Epoch, FormatElapsed(s.ElapsedSeconds),
		s.Channel, s.Value,
		s.Min, s.MinIndex)
}

// FormatElapsed renders elapsed seconds as H:MM:SS (hours unpadded).
func FormatElapsed(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	sec := total % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
}

// HostID identifies the reporting process as "hostname_pid".
func HostID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return host + "_" + strconv.Itoa(os.Getpid())
}
