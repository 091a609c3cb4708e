// Package audit reports how well the territory map fits each Markdown
// document under a directory.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/marginalia/internal/config"
	"github.com/ensigniasec/marginalia/internal/document"
	"github.com/ensigniasec/marginalia/internal/territory"
)

const (
	defaultWidth = 80
	reportWidth  = 72
)

// FileReport is the audit of one document.
type FileReport struct {
	Path       string         `json:"path"`
	Blocks     int            `json:"blocks"`
	Rows       int            `json:"rows"`
	Markers    int            `json:"markers"`
	ByKind     map[string]int `json:"by_kind,omitempty"`
	ScrollMax  float64        `json:"scroll_max"`
	Spacing    float64        `json:"spacing"`
	Compressed bool           `json:"compressed"`
	Error      string         `json:"error,omitempty"`
}

// Result aggregates every audited document.
type Result struct {
	Root       string        `json:"root"`
	Files      []FileReport  `json:"files"`
	Markers    int           `json:"markers"`
	Compressed int           `json:"compressed"`
	Failed     int           `json:"failed"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
}

// Auditor lays out documents with one configuration and viewport height.
type Auditor struct {
	cfg      config.Config
	height   float64
	progress func(FileReport)
}

// New returns an auditor using cfg at a viewport of height rows.
func New(cfg config.Config, height float64) *Auditor {
	return &Auditor{cfg: cfg, height: height}
}

// WithProgress sets a callback invoked after each document is audited.
func (a *Auditor) WithProgress(fn func(FileReport)) *Auditor {
	a.progress = fn
	return a
}

// Run audits every Markdown document under root. Per-file failures are
// recorded in the report, not returned.
func (a *Auditor) Run(ctx context.Context, root string) (*Result, error) {
	logrus.Debug("Starting audit of ", root)
	res := &Result{Root: root, Files: []FileReport{}, StartedAt: time.Now()}
	for path := range streamDocuments(ctx, root) {
		fr := a.File(path)
		if fr.Error != "" {
			res.Failed++
		}
		if fr.Compressed {
			res.Compressed++
		}
		res.Markers += fr.Markers
		res.Files = append(res.Files, fr)
		if a.progress != nil {
			a.progress(fr)
		}
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	sort.Slice(res.Files, func(i, j int) bool { return res.Files[i].Path < res.Files[j].Path })
	res.Duration = time.Since(res.StartedAt)
	return res, nil
}

// File audits a single document.
func (a *Auditor) File(path string) FileReport {
	fr := FileReport{Path: path}
	src, err := document.ReadFile(path)
	if err != nil {
		logrus.WithError(err).WithField("path", path).Debug("audit: skipping document")
		fr.Error = err.Error()
		return fr
	}
	width := a.cfg.Layout.Width
	if width <= 0 {
		width = defaultWidth
	}
	doc := document.New(src, width, a.cfg.Layout.Gap)
	doc.Resize(width, a.height)

	markers := doc.Markers()
	m := territory.Build(markers, doc.Viewport(), a.cfg.Territory)
	fr.Blocks = len(doc.Blocks())
	fr.Rows = len(doc.Rows())
	fr.Markers = len(markers)
	fr.ScrollMax = m.ScrollMax
	fr.Spacing = m.Spacing
	fr.Compressed = m.Compressed
	if len(markers) > 0 {
		fr.ByKind = make(map[string]int)
		for _, mk := range markers {
			fr.ByKind[mk.Kind.String()]++
		}
	}
	return fr
}

// Print writes the result as indented JSON or a plain-text table.
func Print(w io.Writer, res *Result, jsonOutput bool) error {
	if jsonOutput {
		out, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	}

	fmt.Fprintln(w, strings.Repeat("=", reportWidth))
	fmt.Fprintln(w, "MARGINALIA AUDIT")
	fmt.Fprintln(w, strings.Repeat("=", reportWidth))
	fmt.Fprintf(w, "Root: %s\n", res.Root)
	fmt.Fprintf(w, "Documents: %d, markers: %d, compressed: %d, failed: %d (duration: %s)\n\n",
		len(res.Files), res.Markers, res.Compressed, res.Failed, res.Duration.Round(time.Millisecond))

	for _, f := range res.Files {
		if f.Error != "" {
			fmt.Fprintf(w, "  ✗ %s: %s\n", f.Path, f.Error)
			continue
		}
		flag := " "
		if f.Compressed {
			flag = "!"
		}
		fmt.Fprintf(w, "  %s %s  markers=%d rows=%d spacing=%.1f\n", flag, f.Path, f.Markers, f.Rows, f.Spacing)
	}
	if res.Compressed > 0 {
		fmt.Fprintln(w, "\n! territory spacing was compressed: the document is too short for its markers")
	}
	return nil
}
