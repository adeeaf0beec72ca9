package cli

import (
	"fmt"
	"io"

	"github.com/raphaelgruber/docsum/internal/metrics"
)

// printCallStats writes per-endpoint call statistics for the finished command.
func printCallStats(w io.Writer, snap metrics.Snapshot) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Service Calls")
	fmt.Fprintln(w, "═══════════════════════════════════════")

	if len(snap.Endpoints) == 0 {
		fmt.Fprintln(w, "No calls made")
		return
	}

	fmt.Fprintf(w, "%-18s %6s %6s %6s %6s %9s %9s\n", "ENDPOINT", "CALLS", "OK", "SERVER", "NET", "AVG(ms)", "MAX(ms)")
	for _, ep := range snap.Endpoints {
		fmt.Fprintf(w, "%-18s %6d %6d %6d %6d %9.1f %9d\n",
			ep.Endpoint, ep.Count, ep.OK, ep.ServerErrors, ep.TransportFailures, ep.AvgTimeMs, ep.MaxTimeMs)
	}
}
