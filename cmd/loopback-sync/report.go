package main

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/stat"

	"github.com/0EVSG/sosso"
	"github.com/0EVSG/sosso/internal/meter"
)

// report accumulates per-period observations of one run and summarizes
// them once the run finishes.
type report struct {
	balances    map[sosso.Role][]float64
	corrections map[sosso.Role][]float64
	peak        float64
	rms         float64
	clipping    bool
	periods     int
}

func newReport() *report {
	return &report{
		balances:    make(map[sosso.Role][]float64),
		corrections: make(map[sosso.Role][]float64),
	}
}

// record captures one period completion event.
func (r *report) record(ev sosso.PeriodEvent) {
	r.balances[ev.Role] = append(r.balances[ev.Role], float64(ev.Balance))
	r.corrections[ev.Role] = append(r.corrections[ev.Role], float64(ev.Correction))
	r.periods++

	if ev.Role == sosso.RoleRecording {
		level := meter.Measure(ev.Data)
		if level.Peak > r.peak {
			r.peak = level.Peak
		}
		if level.RMS > r.rms {
			r.rms = level.RMS
		}
		r.clipping = r.clipping || level.Clipping
	}
}

// print writes the run summary.
func (r *report) print(w io.Writer) {
	fmt.Fprintf(w, "Completed %d periods.\n", r.periods)
	for _, role := range []sosso.Role{sosso.RoleRecording, sosso.RolePlayback} {
		printSeries(w, role.String()+" balance", r.balances[role])
		printSeries(w, role.String()+" correction", r.corrections[role])
	}
	fmt.Fprintf(w, "Recording level: rms %d%%, peak %d%%, clipping %v\n",
		meter.Percent(r.rms), meter.Percent(r.peak), r.clipping)
}

// printSeries prints mean, standard deviation and extrema of a series.
func printSeries(w io.Writer, name string, values []float64) {
	if len(values) == 0 {
		fmt.Fprintf(w, "%-22s no samples\n", name)
		return
	}
	mean, std := stat.MeanStdDev(values, nil)
	low, high := extrema(values)
	fmt.Fprintf(w, "%-22s mean %8.2f  std %8.2f  min %8.0f  max %8.0f frames\n",
		name, mean, std, low, high)
}

func extrema(values []float64) (low, high float64) {
	low, high = values[0], values[0]
	for _, v := range values[1:] {
		if v < low {
			low = v
		}
		if v > high {
			high = v
		}
	}
	return low, high
}
