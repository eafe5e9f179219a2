package telemetry

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// CSVHeader is the column set of exported outcome logs.
var CSVHeader = []string{
	"Timestamp",
	"Gesture",
	"Success",
	"Latency",
	"FPS",
	"Action Status",
	"Dispatch Latency",
	"Hand Detection Accuracy",
	"Frame Processing Rate",
	"Distance Stability",
	"Frame Processing Time",
	"Gesture Success Rate",
}

// CSVRecord formats one outcome as a CSV row matching CSVHeader. Latencies
// and frame times are in seconds.
func CSVRecord(o Outcome) []string {
	return []string{
		o.At.Format("2006-01-02 15:04:05"),
		o.Gesture,
		strconv.FormatBool(o.Success),
		fmt.Sprintf("%.3f", o.DecisionLatency.Seconds()),
		strconv.Itoa(int(o.Stats.FPS)),
		o.Status,
		fmt.Sprintf("%.3f", o.DispatchLatency.Seconds()),
		fmt.Sprintf("%.3f", o.Stats.HandDetectionRate),
		fmt.Sprintf("%.3f", o.Stats.ProcessingRate),
		fmt.Sprintf("%.6f", o.Stats.DistanceStability),
		fmt.Sprintf("%.6f", o.Stats.AvgFrameTime.Seconds()),
		fmt.Sprintf("%.3f", o.SuccessRate),
	}
}

// WriteCSV writes the header and one row per outcome.
func WriteCSV(w io.Writer, outcomes []Outcome) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, o := range outcomes {
		if err := cw.Write(CSVRecord(o)); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
