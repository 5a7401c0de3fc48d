package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"

	"github.com/printbeast/rngp-patcher/patchtypes"
)

// summaryJSON is the --json rendering of a session.
type summaryJSON struct {
	ManifestVersion string              `json:"manifest_version,omitempty"`
	Plan            *patchtypes.Plan    `json:"plan,omitempty"`
	Outcome         *patchtypes.Outcome `json:"outcome,omitempty"`
}

type reportJSON struct {
	ManifestVersion string `json:"manifest_version,omitempty"`
	*patchtypes.ConnectionReport
}

func (a *app) printSummary(w io.Writer, s *patchtypes.Summary) error {
	if a.v.GetBool("json") {
		out := summaryJSON{Plan: s.Plan, Outcome: s.Outcome}
		if s.Manifest != nil {
			out.ManifestVersion = s.Manifest.Version
		}
		return writeJSON(w, out)
	}

	if s.Manifest != nil {
		fmt.Fprintf(w, "Manifest %s: %d files, %s\n",
			s.Manifest.Version, s.Manifest.Len(), humanize.Bytes(s.Manifest.TotalSize()))
	}

	if s.Plan != nil {
		st := s.Plan.Stats
		fmt.Fprintf(w, "Plan: %d to fetch (%s), %d to delete, %d up to date\n",
			st.Fetches, humanize.Bytes(st.FetchBytes), st.Deletes, st.NoOps)
		if s.Outcome == nil {
			for _, act := range s.Plan.Actions {
				if act.Type == patchtypes.ActionNoOp {
					continue
				}
				fmt.Fprintf(w, "  %-6s %s (%s)\n", act.Type, act.Path, act.Reason)
			}
		}
	}

	if o := s.Outcome; o != nil {
		fmt.Fprintf(w, "Result: %s, %d fetched (%s), %d deleted, %d warned, %d failed in %s\n",
			o.Status, o.FilesFetched, humanize.Bytes(uint64(o.BytesFetched)), o.FilesDeleted,
			len(o.FilesWarned), len(o.FilesFailed), o.Duration.Round(time.Millisecond))
		if o.Reason != "" {
			fmt.Fprintf(w, "  reason: %s\n", o.Reason)
		}
		for _, e := range o.Errors {
			level := "error"
			if e.Warning {
				level = "warning"
			}
			fmt.Fprintf(w, "  %s %s: %s\n", level, e.Path, e.Message)
		}
	}
	return nil
}

func (a *app) printReport(w io.Writer, r *patchtypes.ConnectionReport) error {
	if a.v.GetBool("json") {
		out := reportJSON{ConnectionReport: r}
		if r.Manifest != nil {
			out.ManifestVersion = r.Manifest.Version
		}
		return writeJSON(w, out)
	}

	if r.Manifest != nil {
		fmt.Fprintf(w, "Manifest %s reachable (%s, %d files)\n",
			r.Manifest.Version, humanize.Bytes(uint64(r.ManifestBytes)), r.Manifest.Len())
	}
	switch {
	case r.FirstFile == "":
		fmt.Fprintln(w, "No files to probe")
	case !r.DigestChecked:
		fmt.Fprintf(w, "Fetched %s (%s), no digest to check\n", r.FirstFile, humanize.Bytes(uint64(r.FirstFileBytes)))
	case r.DigestMatched:
		fmt.Fprintf(w, "Fetched %s (%s), digest OK\n", r.FirstFile, humanize.Bytes(uint64(r.FirstFileBytes)))
	default:
		fmt.Fprintf(w, "Fetched %s (%s), digest MISMATCH\n", r.FirstFile, humanize.Bytes(uint64(r.FirstFileBytes)))
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// progressPrinter renders one line per finished action.
func progressPrinter(w io.Writer) patchtypes.ProgressFunc {
	var mu sync.Mutex
	return func(p patchtypes.Progress) {
		mu.Lock()
		defer mu.Unlock()
		line := fmt.Sprintf("[%d/%d %3.0f%%] %-7s %s", p.Index, p.Total, p.Fraction()*100, p.Status, p.Path)
		if p.Err != nil {
			line += ": " + p.Err.Error()
		}
		fmt.Fprintf(w, "%s (%s total)\n", line, humanize.Bytes(uint64(p.Bytes)))
	}
}
