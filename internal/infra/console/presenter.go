// Package console renders dispatcher events on the terminal and reads
// interactive command lines.
package console

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/osa030/autoskip/internal/app/command"
	"github.com/osa030/autoskip/internal/app/decision"
	"github.com/osa030/autoskip/internal/app/notification"
)

// Presenter writes one line per event. It implements notification.Sink.
type Presenter struct {
	mu  sync.Mutex
	w   io.Writer
	on  lipgloss.Style // allow matches, enabled states
	off lipgloss.Style // deny matches, disabled states
	dim lipgloss.Style
}

// NewPresenter creates a presenter writing to w. Colors are used only when
// w is a terminal.
func NewPresenter(w io.Writer) *Presenter {
	r := lipgloss.NewRenderer(w)
	return &Presenter{
		w:   w,
		on:  r.NewStyle().Foreground(lipgloss.Color("2")),
		off: r.NewStyle().Foreground(lipgloss.Color("1")),
		dim: r.NewStyle().Faint(true),
	}
}

// Send renders event.
func (p *Presenter) Send(ctx context.Context, event notification.Event) error {
	line := p.render(event)
	if line == "" {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := fmt.Fprintln(p.w, line)
	return err
}

func (p *Presenter) render(event notification.Event) string {
	switch event.Type {
	case notification.EventTrackChanged:
		return p.renderTrack(event)
	case notification.EventFeedback:
		return p.renderFeedback(event.Feedback)
	case notification.EventStatus:
		return p.state(event.Enabled).Render(event.Message)
	default:
		return ""
	}
}

// renderTrack prints "score title | artist", coloring each part by the
// rules that matched it. Whitelist colors win over blacklist colors.
func (p *Presenter) renderTrack(event notification.Event) string {
	d := event.Decision
	t := event.Track

	score := fmt.Sprintf("%.2f", t.Score)
	if d.Has(decision.MatchBelowThreshold) {
		score = p.off.Render(score)
	}

	title := p.pick(t.Title, d.Has(decision.MatchSongWhitelisted), d.Has(decision.MatchSongBlacklisted))
	artist := p.pick(t.Artist, d.Has(decision.MatchArtistWhitelisted), d.Has(decision.MatchArtistBlacklisted))

	line := score + " " + title + " " + p.dim.Render("|") + " " + artist
	if event.Skipped {
		line += " " + p.off.Render("Skipped!")
	}
	return line
}

func (p *Presenter) renderFeedback(f command.Feedback) string {
	switch f.Action {
	case command.ActionHelp:
		return f.Message
	case command.ActionSkip:
		return p.off.Render(f.Message)
	case command.ActionToggle, command.ActionNotify:
		return p.state(f.Enabled).Render(f.Message)
	}

	// "Added ..." / "Removed ...": color the verb only.
	verb, rest, found := strings.Cut(f.Message, " ")
	if !found {
		return f.Message
	}
	return p.state(f.Enabled).Render(verb) + " " + rest
}

func (p *Presenter) pick(s string, allowed, denied bool) string {
	switch {
	case allowed:
		return p.on.Render(s)
	case denied:
		return p.off.Render(s)
	default:
		return s
	}
}

func (p *Presenter) state(enabled bool) lipgloss.Style {
	if enabled {
		return p.on
	}
	return p.off
}
