package agent

// State is a step of one ProcessRequest run. Runs move forward through the
// states in declaration order; Error is absorbing and reachable from any step.
type State int

const (
	StateIdle State = iota
	StateRateChecked
	StateContextGathered
	StateCommandIdentified
	StateParametersExtracted
	StateExecuted
	StateReplyComposed
	StatePersisted
	StateDone
	StateError
)

var stateNames = [...]string{
	StateIdle:                "idle",
	StateRateChecked:         "rate_checked",
	StateContextGathered:     "context_gathered",
	StateCommandIdentified:   "command_identified",
	StateParametersExtracted: "parameters_extracted",
	StateExecuted:            "executed",
	StateReplyComposed:       "reply_composed",
	StatePersisted:           "persisted",
	StateDone:                "done",
	StateError:               "error",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// MarshalText renders the state name in logs and JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// trace records visited states and refuses to move backwards or out of Error.
type trace struct {
	states []State
}

func newTrace() *trace {
	return &trace{states: []State{StateIdle}}
}

func (t *trace) current() State {
	return t.states[len(t.states)-1]
}

// advance moves to next. It panics on a backwards move, which would be a
// programming error in the pipeline.
func (t *trace) advance(next State) {
	cur := t.current()
	if cur == StateError || (next != StateError && next <= cur) {
		panic("agent: illegal state transition " + cur.String() + " -> " + next.String())
	}
	t.states = append(t.states, next)
}

func (t *trace) fail() {
	if t.current() != StateError {
		t.states = append(t.states, StateError)
	}
}

func (t *trace) snapshot() []State {
	out := make([]State, len(t.states))
	copy(out, t.states)
	return out
}
