package domain

// ProbeTask is one unit of scheduling work: a single identity probed against
// the target URL.
type ProbeTask struct {
	Engine    string `json:"engine"`
	Label     string `json:"ua_name"`
	UserAgent string `json:"ua_string"`
}

func TaskFromIdentity(id Identity) ProbeTask {
	return ProbeTask{Engine: id.Engine, Label: id.Label, UserAgent: id.UserAgent}
}

// ProbeRequest asks an agent to run one probe run. Optional fields fall back
// to the agent configuration.
type ProbeRequest struct {
	ID          string   `json:"request_id"`
	URL         string   `json:"url"`
	Engines     []string `json:"engines"`
	Follow      *bool    `json:"follow,omitempty"`
	Timeout     float64  `json:"timeout,omitempty"`
	Concurrency int      `json:"concurrency,omitempty"`
	Proxy       string   `json:"proxy,omitempty"`
}
