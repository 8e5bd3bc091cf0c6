package domain

import (
	"sort"
	"time"
)

var redirectCodes = map[int]struct{}{
	301: {},
	302: {},
	303: {},
	307: {},
	308: {},
}

// IsRedirect reports whether code is one of 301, 302, 303, 307, 308.
func IsRedirect(code int) bool {
	_, ok := redirectCodes[code]
	return ok
}

// StatusFamily returns the leading digit of an HTTP status code, or 0 when the
// code is outside 100..599.
func StatusFamily(code int) int {
	if code < 100 || code > 599 {
		return 0
	}
	return code / 100
}

// ProbeOutcome is the result of executing one ProbeTask.
//
// Exactly one of Error and InitialStatus is set. FinalURL and FinalStatus are
// set only when the first response was a redirect, follow was requested and
// the second exchange succeeded.
type ProbeOutcome struct {
	Engine           string  `json:"engine"`
	Label            string  `json:"ua_name"`
	UserAgent        string  `json:"ua_string"`
	InitialStatus    *int    `json:"initial_status"`
	RedirectLocation *string `json:"redirect_location"`
	FinalURL         *string `json:"final_url"`
	FinalStatus      *int    `json:"final_status"`
	Error            *string `json:"error"`

	RedirectFollowFailed bool  `json:"redirect_follow_failed,omitempty"`
	DurationMS           int64 `json:"duration_ms"`
}

func NewOutcome(task ProbeTask) ProbeOutcome {
	return ProbeOutcome{
		Engine:    task.Engine,
		Label:     task.Label,
		UserAgent: task.UserAgent,
	}
}

func (o ProbeOutcome) Failed() bool {
	return o.Error != nil
}

func (o ProbeOutcome) Followed() bool {
	return o.FinalStatus != nil
}

// ResultSet is the ordered collection of outcomes of one run.
type ResultSet struct {
	RunID      string         `json:"run_id"`
	URL        string         `json:"url"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Outcomes   []ProbeOutcome `json:"outcomes"`
}

func (r ResultSet) Len() int {
	return len(r.Outcomes)
}

// Sorted returns a copy of the set with outcomes ordered by engine, then label.
// The original set is left untouched.
func (r ResultSet) Sorted() ResultSet {
	out := r
	out.Outcomes = make([]ProbeOutcome, len(r.Outcomes))
	copy(out.Outcomes, r.Outcomes)
	sort.SliceStable(out.Outcomes, func(i, j int) bool {
		a, b := out.Outcomes[i], out.Outcomes[j]
		if a.Engine != b.Engine {
			return a.Engine < b.Engine
		}
		return a.Label < b.Label
	})
	return out
}

// Failures counts outcomes that ended in a transport error.
func (r ResultSet) Failures() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Failed() {
			n++
		}
	}
	return n
}
