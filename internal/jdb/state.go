package jdb

// Phase is the coarse lifecycle position of a debugging session.
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseWaitingForListener
	PhaseWaitingForVMStarted
	PhaseArmingEntryBreakpoint
	PhaseAwaitingInitialRun
	PhaseReady
	PhaseExited
	PhaseFailed
)

var phaseNames = map[Phase]string{
	PhaseNotStarted:            "not_started",
	PhaseWaitingForListener:    "waiting_for_listener",
	PhaseWaitingForVMStarted:   "waiting_for_vm_started",
	PhaseArmingEntryBreakpoint: "arming_entry_breakpoint",
	PhaseAwaitingInitialRun:    "awaiting_initial_run",
	PhaseReady:                 "ready",
	PhaseExited:                "exited",
	PhaseFailed:                "failed",
}

func (p Phase) String() string {
	if n, ok := phaseNames[p]; ok {
		return n
	}
	return "unknown"
}

// State is the driver's shared session state. It is only touched while the
// driver lock is held.
type State struct {
	VMStarted           bool
	RunSent             bool
	RunCompleted        bool
	ReadyForBreakpoints bool
	ReadyForCommands    bool
	Exited              bool
	ThreadName          string

	Output LineBuffer

	q queue
}

// gateOpen reports whether a command of category c may be admitted.
func (s *State) gateOpen(c Category) bool {
	if c.gatedOnBreakpoints() {
		return s.ReadyForBreakpoints
	}
	return s.ReadyForCommands
}

func (s *State) phase() Phase {
	switch {
	case s.Exited:
		return PhaseExited
	case s.ReadyForCommands:
		return PhaseReady
	case s.VMStarted:
		return PhaseAwaitingInitialRun
	default:
		return PhaseWaitingForVMStarted
	}
}

// Snapshot is a point-in-time copy of the session state, safe to serialize.
type Snapshot struct {
	Session             string `json:"session,omitempty"`
	Phase               string `json:"phase"`
	VMStarted           bool   `json:"vm_started"`
	RunSent             bool   `json:"run_sent"`
	RunCompleted        bool   `json:"run_completed"`
	ReadyForBreakpoints bool   `json:"ready_for_breakpoints"`
	ReadyForCommands    bool   `json:"ready_for_commands"`
	Exited              bool   `json:"exited"`
	ThreadName          string `json:"thread_name"`
	Executing           string `json:"executing,omitempty"`
	Pending             int    `json:"pending"`
	Waiting             int    `json:"waiting"`
	BufferedLines       int    `json:"buffered_lines"`
}

func (s *State) snapshot() Snapshot {
	snap := Snapshot{
		Phase:               s.phase().String(),
		VMStarted:           s.VMStarted,
		RunSent:             s.RunSent,
		RunCompleted:        s.RunCompleted,
		ReadyForBreakpoints: s.ReadyForBreakpoints,
		ReadyForCommands:    s.ReadyForCommands,
		Exited:              s.Exited,
		ThreadName:          s.ThreadName,
		Pending:             len(s.q.pending),
		Waiting:             len(s.q.waiting),
		BufferedLines:       s.Output.Len(),
	}
	if s.q.executing != nil {
		snap.Executing = s.q.executing.Text
	}
	return snap
}
