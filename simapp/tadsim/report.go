package main

import (
	"fmt"
	"github.com/aybabtme/uniplot/histogram"
	"github.com/charmbracelet/lipgloss"
	"io"
	"tad/audio"
	"time"
)

const (
	histogramBins  = 10
	histogramWidth = 50
)

type Transition struct {
	Frame    int
	From, To audio.State
}

// SongLoad is how many frames a song took from the LoadSong call until its driver ran.
type SongLoad struct {
	Song   uint8
	Frames int
}

type Report struct {
	SessionID string
	Transport string

	InitAccesses int
	InitTime     time.Duration

	Frames        int
	FrameAccesses []float64
	Transitions   []Transition
	SongLoads     []SongLoad
	FinalState    audio.State

	// only known when the device is simulated in process
	DeviceCommands int
	DeviceLoads    int
	DeviceRestarts int
}

type styles struct {
	title   lipgloss.Style
	label   lipgloss.Style
	loader  lipgloss.Style
	driver  lipgloss.Style
	null    lipgloss.Style
	warning lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(7)).Background(lipgloss.ANSIColor(4)).Padding(0, 1),
		label:   lipgloss.NewStyle().Bold(true),
		loader:  lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(3)),
		driver:  lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(2)),
		null:    lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(8)),
		warning: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(1)),
	}
}

func (st styles) state(s audio.State) string {
	switch {
	case s.IsDriverRunning():
		return st.driver.Render(s.String())
	case s.IsLoaderActive():
		return st.loader.Render(s.String())
	}
	return st.null.Render(s.String())
}

func (r *Report) busiestFrame() (frame int, accesses float64) {
	for i, n := range r.FrameAccesses {
		if n > accesses {
			frame, accesses = i, n
		}
	}
	return
}

func (r *Report) Fprint(w io.Writer) error {
	st := newStyles()

	fmt.Fprintln(w, st.title.Render(fmt.Sprintf("tadsim %s session %s", r.Transport, r.SessionID)))
	fmt.Fprintf(w, "%s %d port accesses in %v\n", st.label.Render("init:"), r.InitAccesses, r.InitTime.Round(time.Microsecond))
	fmt.Fprintf(w, "%s %d, final state %s\n", st.label.Render("frames:"), r.Frames, st.state(r.FinalState))

	fmt.Fprintln(w, st.label.Render("transitions:"))
	for _, t := range r.Transitions {
		fmt.Fprintf(w, "  %6d  %s -> %s\n", t.Frame, st.state(t.From), st.state(t.To))
	}

	fmt.Fprintln(w, st.label.Render("song loads:"))
	if len(r.SongLoads) == 0 {
		fmt.Fprintln(w, st.warning.Render("  no song finished loading"))
	}
	for _, l := range r.SongLoads {
		fmt.Fprintf(w, "  song %3d  %d frames\n", l.Song, l.Frames)
	}

	if r.DeviceLoads > 0 || r.DeviceCommands > 0 {
		fmt.Fprintf(w, "%s %d loads, %d commands, %d loader restarts\n",
			st.label.Render("device:"), r.DeviceLoads, r.DeviceCommands, r.DeviceRestarts)
	}

	if len(r.FrameAccesses) == 0 {
		return nil
	}

	frame, most := r.busiestFrame()
	fmt.Fprintf(w, "%s busiest frame %d with %.0f\n", st.label.Render("port accesses per frame:"), frame, most)
	hist := histogram.Hist(histogramBins, r.FrameAccesses)
	return histogram.Fprint(w, hist, histogram.Linear(histogramWidth))
}
