package events

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

var (
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	failureStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
)

// TermSink renders per-pipeline progress bars and an end-of-run summary
// table to an interactive terminal. It is the terminal-dashboard
// collaborator SPEC_FULL.md §4.H treats as external, implemented as one
// concrete sink so the repository is runnable end-to-end.
type TermSink struct {
	out io.Writer
	mu  sync.Mutex

	bars      map[string]*progressbar.ProgressBar
	total     int
	succeeded int
	failed    int
}

// NewTermSink creates a TermSink writing to out, with expectedPipelines
// used to size the overall progress bar.
func NewTermSink(out io.Writer, expectedPipelines int) *TermSink {
	return &TermSink{
		out:   out,
		bars:  make(map[string]*progressbar.ProgressBar),
		total: expectedPipelines,
	}
}

func (s *TermSink) Handle(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Kind {
	case KindPipelineStarted:
		bar := progressbar.NewOptions(1,
			progressbar.OptionSetDescription(ev.PipelineLabel),
			progressbar.OptionSetWriter(s.out),
			progressbar.OptionClearOnFinish(),
		)
		s.bars[ev.PipelineLabel] = bar
	case KindStepFinished:
		if bar, ok := s.bars[ev.PipelineLabel]; ok {
			_ = bar.Add(0) // touch the bar so it repaints with the latest step
		}
	case KindPipelineFinished:
		if bar, ok := s.bars[ev.PipelineLabel]; ok {
			_ = bar.Finish()
			delete(s.bars, ev.PipelineLabel)
		}
		if ev.Err != nil {
			s.failed++
			fmt.Fprintln(s.out, failureStyle.Render("FAIL")+" "+ev.PipelineLabel+": "+ev.Err.Error())
		} else {
			s.succeeded++
			fmt.Fprintln(s.out, successStyle.Render("OK")+"   "+ev.PipelineLabel)
		}
	}
}

// Summary returns the end-of-run totals table as a string, colorized with
// fatih/color and laid out with lipgloss.
func (s *TermSink) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	okLine := color.GreenString("%d succeeded", s.succeeded)
	failLine := color.RedString("%d failed", s.failed)
	return lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render("Run summary"),
		fmt.Sprintf("%s / %s of %d planned", okLine, failLine, s.total),
	)
}

var _ Sink = (*TermSink)(nil)
