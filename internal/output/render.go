// Package output renders a probe result set for people or machines.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/bogzak/search-engine-ua-checker/internal/domain"
)

type Format string

const (
	FormatHuman Format = "human"
	FormatJSON  Format = "json"
)

var separator = strings.Repeat("-", 80)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatHuman:
		return FormatHuman, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want human or json)", s)
}

// Printer writes result sets in one format.
type Printer struct {
	w      io.Writer
	format Format
	glyphs Glyphs
}

func NewPrinter(w io.Writer, format Format) *Printer {
	return &Printer{w: w, format: format, glyphs: DefaultGlyphs()}
}

// Header prints the run banner. It is a no-op in JSON mode so the output stays
// a single document.
func (p *Printer) Header(url, proxy string, engines []string) {
	if p.format == FormatJSON {
		return
	}
	fmt.Fprintf(p.w, "URL: %s\n", url)
	if proxy != "" {
		fmt.Fprintf(p.w, "Proxy: %s\n", proxy)
	}
	fmt.Fprintf(p.w, "Engines: %s\n", strings.Join(engines, ", "))
	fmt.Fprintln(p.w, separator)
}

// MissingEngine notes an engine that has no identities to probe with.
func (p *Printer) MissingEngine(engine, url string) {
	if p.format == FormatJSON {
		return
	}
	fmt.Fprintf(p.w, "[%s] No User-Agent found for %s\n", engine, url)
	fmt.Fprintln(p.w, separator)
}

func (p *Printer) Print(rs domain.ResultSet) error {
	if p.format == FormatJSON {
		return WriteJSON(p.w, rs)
	}
	WriteHuman(p.w, rs, p.glyphs)
	return nil
}

func WriteHuman(w io.Writer, rs domain.ResultSet, glyphs Glyphs) {
	bold := color.New(color.Bold).SprintFunc()

	for _, o := range rs.Outcomes {
		fmt.Fprintf(w, "[%s] %s\n", bold(o.Engine), o.Label)
		fmt.Fprintf(w, "UA: %s\n", o.UserAgent)

		if o.Error != nil {
			fmt.Fprintf(w, "Error: %s\n", color.RedString(*o.Error))
		} else {
			fmt.Fprintf(w, "Status: %s %s\n", statusText(o.InitialStatus), glyphs.For(o.InitialStatus))
			if o.RedirectLocation != nil {
				fmt.Fprintf(w, "Redirect: %s\n", *o.RedirectLocation)
			}
			if o.FinalStatus != nil {
				fmt.Fprintf(w, "Final URL: %s\n", deref(o.FinalURL))
				fmt.Fprintf(w, "Final Status: %s %s\n", statusText(o.FinalStatus), glyphs.For(o.FinalStatus))
			} else if o.RedirectFollowFailed {
				fmt.Fprintln(w, "Final: redirect could not be followed")
			}
		}

		fmt.Fprintf(w, "Time: %s\n", formatSeconds(time.Duration(o.DurationMS)*time.Millisecond))
		fmt.Fprintln(w, separator)
	}
}

// WriteJSON emits the outcomes as an indented array. Absent values are null.
func WriteJSON(w io.Writer, rs domain.ResultSet) error {
	outcomes := rs.Outcomes
	if outcomes == nil {
		outcomes = []domain.ProbeOutcome{}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(outcomes); err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	return nil
}

func statusText(status *int) string {
	if status == nil {
		return "None"
	}
	return colorStatus(*status)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatSeconds(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.3f s", d.Seconds())
}
