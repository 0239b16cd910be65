package artifact

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func TestProgress_Reports(t *testing.T) {
	testCases := map[string]struct {
		total     int64
		chunks    []int
		expReport int
	}{
		"everyTenth":      {total: 100, chunks: []int{10, 10, 10, 10, 10, 10, 10, 10, 10, 10}, expReport: 10},
		"belowFirstTenth": {total: 100, chunks: []int{5}, expReport: 0},
		"singleWrite":     {total: 100, chunks: []int{100}, expReport: 1},
		"skipsTenths":     {total: 100, chunks: []int{35, 65}, expReport: 2},
		"unknownLength":   {total: -1, chunks: []int{10, 10}, expReport: 0},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			var logs bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&logs, nil))
			p := newProgress(io.Discard, logger, "model.enf", tc.total)

			for _, n := range tc.chunks {
				if _, err := p.Write(make([]byte, n)); err != nil {
					t.Fatal(err)
				}
			}

			if got := strings.Count(logs.String(), `msg="artifact progress"`); got != tc.expReport {
				t.Errorf("exp %d reports, got %d:\n%s", tc.expReport, got, logs.String())
			}
			if tc.expReport > 0 && !strings.Contains(logs.String(), "path=model.enf") {
				t.Errorf("exp path in report, got %s", logs.String())
			}
		})
	}
}
