package tui

import "time"

// Package-level constants to avoid magic numbers and improve readability.
const (
	// frameInterval paces engine frames at roughly 60 Hz.
	frameInterval = time.Second / 60

	defaultWidth  = 80
	defaultHeight = 24

	// gutterWidth is the focus/marker column left of the text.
	gutterWidth = 2
	// chromeLines is header + progress + footer around the document body.
	chromeLines   = 3
	bodyMinHeight = 1

	// wheelStep is how many rows one mouse wheel notch scrolls.
	wheelStep = 3

	markerListMaxWidth = 72
	quotePromptWidth   = 48
	quoteCharLimit     = 256
	shortIDLen         = 8

	// Color constants.
	accentColor = "63"  // cyan
	grayColor   = "241" // gray
	dimColor    = "240" // gray variant
	redColor    = "196" // red
	greenColor  = "46"  // green
	orangeColor = "208" // orange
	focusColor  = "69"  // blue
)
