package models

// ProbeStatus is the outcome of collecting a single fact.
type ProbeStatus string

const (
	ProbeUnknown ProbeStatus = ""
	ProbeOK      ProbeStatus = "ok"
	ProbeFailed  ProbeStatus = "failed"
)

// ProbeResult represents a collected fact that may have failed.
type ProbeResult struct {
	Status     ProbeStatus `json:"status,omitempty"`
	Error      string      `json:"error,omitempty"`
	StatusCode int         `json:"status_code,omitempty"`
	LatencyMs  float64     `json:"latency_ms,omitempty"`
}

// OK reports whether the probe succeeded.
func (p ProbeResult) OK() bool { return p.Status == ProbeOK }

// Failed reports whether the probe ran and failed.
func (p ProbeResult) Failed() bool { return p.Status == ProbeFailed }

// ProbeSucceeded builds a successful ProbeResult.
func ProbeSucceeded(statusCode int, latencyMs float64) ProbeResult {
	return ProbeResult{Status: ProbeOK, StatusCode: statusCode, LatencyMs: latencyMs}
}

// ProbeFailure builds a failed ProbeResult from err.
func ProbeFailure(err error) ProbeResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return ProbeResult{Status: ProbeFailed, Error: msg}
}
