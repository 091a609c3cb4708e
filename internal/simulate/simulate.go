// Package simulate replays a scripted reading session against the engine on
// a manual clock. Scripts are YAML: a document, a viewport size and a list
// of timed steps.
package simulate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ensigniasec/marginalia/internal/config"
	"github.com/ensigniasec/marginalia/internal/document"
	"github.com/ensigniasec/marginalia/internal/engine"
	"github.com/ensigniasec/marginalia/internal/geometry"
	"github.com/ensigniasec/marginalia/internal/reporter"
	"github.com/ensigniasec/marginalia/internal/sched"
	"github.com/ensigniasec/marginalia/internal/validate"
)

const (
	defaultWidth  = 60
	defaultHeight = 24
	defaultTail   = time.Second
)

// ErrInvalidScript is returned when a script fails validation.
var ErrInvalidScript = errors.New("invalid script")

// Epoch is the clock origin of every simulation.
var Epoch = time.Unix(0, 0).UTC()

// Step is one timed action. At is measured from the start of the run.
type Step struct {
	At time.Duration `yaml:"at" validate:"gte=0"`
	Do string        `yaml:"do" validate:"required,oneof=scroll marker block quote fraction offset inject suspend resume resize"`

	Value  float64       `yaml:"value"`
	ID     string        `yaml:"id"`
	Kind   geometry.Kind `yaml:"kind"`
	Block  int           `yaml:"block" validate:"gte=0"`
	Text   string        `yaml:"text"`
	Width  int           `yaml:"width" validate:"gte=0"`
	Height float64       `yaml:"height" validate:"gte=0"`
}

// Script is a complete simulation. Document is resolved relative to the
// script file; Markdown, when set, is used instead.
type Script struct {
	Document string        `yaml:"document"`
	Markdown string        `yaml:"markdown" validate:"required_without=Document"`
	Width    int           `yaml:"width" validate:"gte=0"`
	Height   float64       `yaml:"height" validate:"gte=0"`
	Step     time.Duration `yaml:"step" validate:"gte=0"`
	Tail     time.Duration `yaml:"tail" validate:"gte=0"`
	Steps    []Step        `yaml:"steps" validate:"dive"`

	dir string
}

// Summary describes a finished run.
type Summary struct {
	Frames   uint64                     `json:"frames" yaml:"frames"`
	Elapsed  time.Duration              `json:"elapsed" yaml:"elapsed"`
	Events   map[reporter.EventType]int `json:"events" yaml:"events"`
	Rejected int                        `json:"rejected" yaml:"rejected"`
	Focused  string                     `json:"focused,omitempty" yaml:"focused,omitempty"`
	Offset   float64                    `json:"offset" yaml:"offset"`
}

// Load reads and validates the script at path.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.dir = filepath.Dir(path)
	return s, nil
}

// Parse decodes and validates a script.
func Parse(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if err := validate.Struct(s); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidScript, validate.Describe(err))
	}
	return &s, nil
}

func (s *Script) source() (*document.Source, error) {
	if s.Markdown != "" {
		return document.Parse([]byte(s.Markdown)), nil
	}
	path := s.Document
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.dir, path)
	}
	return document.ReadFile(path)
}

// Run replays s with cfg, sending every event to sink. Commands the engine
// rejects are logged and counted; they do not stop the run.
func Run(ctx context.Context, s *Script, cfg config.Config, sink reporter.Sink) (Summary, error) {
	src, err := s.source()
	if err != nil {
		return Summary{}, err
	}

	width := firstPositive(s.Width, cfg.Layout.Width, defaultWidth)
	height := s.Height
	if height <= 0 {
		height = defaultHeight
	}
	doc := document.New(src, width, cfg.Layout.Gap)
	doc.Resize(width, height)

	sum := Summary{Events: make(map[reporter.EventType]int)}
	count := reporter.SinkFunc(func(e reporter.Event) { sum.Events[e.Type]++ })
	if sink == nil {
		sink = reporter.Discard
	}

	clock := sched.NewManual(Epoch, s.Step)
	eng := engine.New(doc, clock, reporter.Fanout{sink, count}, cfg)

	steps := append([]Step(nil), s.Steps...)
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].At < steps[j].At })

	for _, st := range steps {
		for clock.Now().Sub(Epoch) < st.At {
			if err := ctx.Err(); err != nil {
				return sum, err
			}
			clock.Step()
		}
		if err := apply(eng, doc, clock, st); err != nil {
			sum.Rejected++
			logrus.WithError(err).WithField("step", st.Do).Warn("Step rejected")
		}
	}

	tail := s.Tail
	if tail <= 0 {
		tail = defaultTail
	}
	clock.Advance(tail)

	snap := eng.Snapshot()
	sum.Frames = clock.Frames()
	sum.Elapsed = clock.Now().Sub(Epoch)
	sum.Offset = snap.Viewport.Offset
	if snap.Focused >= 0 {
		sum.Focused = snap.Marker.ID
	}
	return sum, nil
}

func apply(eng *engine.Engine, doc *document.Document, clock *sched.Manual, st Step) error {
	logrus.WithFields(logrus.Fields{"at": st.At, "do": st.Do}).Debug("Applying step")
	switch st.Do {
	case "scroll":
		// The raw value is reported so scripts can overscroll.
		doc.ScrollTo(st.Value)
		eng.OnScroll(st.Value)
	case "marker":
		return eng.ScrollToMarker(st.ID)
	case "block":
		return eng.ScrollToBlock(st.Block, st.ID, st.Kind)
	case "quote":
		return eng.ScrollToQuote(st.Text)
	case "fraction":
		eng.ScrollToFraction(st.Value)
	case "offset":
		eng.ScrollToOffset(st.Value)
	case "inject":
		_, err := eng.InjectMarker(st.Kind, st.ID, st.Block)
		return err
	case "suspend":
		clock.Suspend(true)
	case "resume":
		clock.Suspend(false)
	case "resize":
		vp := doc.Viewport()
		width, height := st.Width, st.Height
		if width <= 0 {
			width = doc.Width()
		}
		if height <= 0 {
			height = vp.Height
		}
		doc.Resize(width, height)
		eng.Resize()
	default:
		return fmt.Errorf("unknown step %q", st.Do)
	}
	return nil
}

func firstPositive(vs ...int) int {
	for _, v := range vs {
		if v > 0 {
			return v
		}
	}
	return 0
}
