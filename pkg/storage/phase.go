package storage

import "go.uber.org/zap"

// Phase is the state of a single upload, download or KV operation:
//
//	Idle → SelectingEndpoint → Failed
//	Idle → SelectingEndpoint → Authorizing → Transmitting → Committed | Failed
//
// Committed and Failed are terminal. Every operation reaches exactly one of them.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSelectingEndpoint
	PhaseAuthorizing
	PhaseTransmitting
	PhaseCommitted
	PhaseFailed
)

var phaseNames = [...]string{
	PhaseIdle:              "idle",
	PhaseSelectingEndpoint: "selecting_endpoint",
	PhaseAuthorizing:       "authorizing",
	PhaseTransmitting:      "transmitting",
	PhaseCommitted:         "committed",
	PhaseFailed:            "failed",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// Terminal reports whether p is Committed or Failed.
func (p Phase) Terminal() bool {
	return p == PhaseCommitted || p == PhaseFailed
}

// Observer is notified on every phase transition. Calls are made synchronously
// on the goroutine running the operation.
type Observer func(op string, from, to Phase)

// Tracker walks one operation through its phases. It is not safe for
// concurrent use; each operation owns its own tracker.
type Tracker struct {
	op       string
	phase    Phase
	endpoint string
	observe  Observer
}

// NewTracker starts op in PhaseIdle.
func NewTracker(op string, observe Observer) *Tracker {
	return &Tracker{op: op, phase: PhaseIdle, observe: observe}
}

// Phase returns the current phase.
func (t *Tracker) Phase() Phase { return t.phase }

// SetEndpoint records the endpoint the operation is bound to.
func (t *Tracker) SetEndpoint(url string) { t.endpoint = url }

// Enter moves to phase p. Transitions out of a terminal phase are ignored.
func (t *Tracker) Enter(p Phase) {
	if t.phase.Terminal() || t.phase == p {
		return
	}
	from := t.phase
	t.phase = p
	zap.L().Debug("storage operation phase",
		zap.String("op", t.op),
		zap.String("from", from.String()),
		zap.String("to", p.String()),
		zap.String("endpoint", t.endpoint))
	if t.observe != nil {
		t.observe(t.op, from, p)
	}
}

// Commit moves to PhaseCommitted.
func (t *Tracker) Commit() { t.Enter(PhaseCommitted) }

// Fail moves to PhaseFailed and wraps err in an *OpError naming the phase the
// failure happened in. A nil err yields nil.
func (t *Tracker) Fail(err error) error {
	if err == nil {
		return nil
	}
	at := t.phase
	t.Enter(PhaseFailed)
	return &OpError{Op: t.op, Phase: at, Endpoint: t.endpoint, Err: err}
}
