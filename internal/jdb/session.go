package jdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultListenTimeout bounds the wait for the target's debug listener.
const DefaultListenTimeout = 10 * time.Second

// LaunchConfig describes how to start (or attach to) the debuggee.
type LaunchConfig struct {
	WorkDir string
	// JDKPath is the directory holding the java and jdb executables; empty
	// means look them up on PATH.
	JDKPath    string
	MainClass  string
	ClassPath  []string
	SourcePath []string
	VMOptions  []string
	Args       []string
	Env        map[string]string
	EnvFile    string

	// AttachPort selects attach mode: no target is spawned and jdb connects
	// to AttachHost:AttachPort.
	AttachHost string
	AttachPort int

	// ListenerBanner, when set, is waited for in the target's output instead
	// of probing the debug socket.
	ListenerBanner string
	StopOnEntry    bool
	ListenTimeout  time.Duration
}

func (c LaunchConfig) attach() bool { return c.AttachPort != 0 }

func (c LaunchConfig) tool(name string) string {
	if c.JDKPath == "" {
		return name
	}
	return filepath.Join(c.JDKPath, name)
}

func (c LaunchConfig) listenTimeout() time.Duration {
	if c.ListenTimeout <= 0 {
		return DefaultListenTimeout
	}
	return c.ListenTimeout
}

// Validate checks that the config names something to debug.
func (c LaunchConfig) Validate() error {
	if !c.attach() && c.MainClass == "" {
		return errors.New("launch config: main class is required unless attaching")
	}
	if c.AttachPort < 0 || c.AttachPort > 65535 {
		return fmt.Errorf("launch config: attach port %d out of range", c.AttachPort)
	}
	return nil
}

// Session runs the debuggee and jdb and exposes the driver attached to
// them. It owns both processes; nothing else kills them.
type Session struct {
	ID string

	cfg     LaunchConfig
	log     *slog.Logger
	metrics *Metrics
	driver  *Driver
	stdin   *switchWriter

	mu       sync.Mutex
	phase    Phase
	started  bool
	target   *process
	debugger *process

	teardownOnce sync.Once
	closed       chan struct{}
}

// SessionOption configures a Session.
type SessionOption func(*Session)

func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(s *Session) { s.log = l }
}

func WithSessionMetrics(m *Metrics) SessionOption {
	return func(s *Session) { s.metrics = m }
}

func NewSession(cfg LaunchConfig, opts ...SessionOption) *Session {
	s := &Session{
		ID:     uuid.NewString(),
		cfg:    cfg,
		log:    slog.Default(),
		stdin:  &switchWriter{},
		closed: make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With("session", s.ID)
	s.driver = NewDriver(s.stdin, WithLogger(s.log), WithMetrics(s.metrics))
	return s
}

// Driver returns the command/event interface of the session.
func (s *Session) Driver() *Driver { return s.driver }

// Start runs the session up to the point where it accepts commands and
// returns the current thread name. Any failure tears the session down and
// is returned wrapped in ErrStartupFailed.
func (s *Session) Start(ctx context.Context) (string, error) {
	if err := s.cfg.Validate(); err != nil {
		return "", s.fail(err)
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return "", fmt.Errorf("session %s already started", s.ID)
	}
	s.started = true
	s.mu.Unlock()
	s.metrics.sessionStarted()
	go s.watchTermination()

	addr, err := s.launchTarget(ctx)
	if err != nil {
		return "", s.fail(err)
	}
	s.setPhase(PhaseWaitingForVMStarted)
	if err := s.launchDebugger(addr); err != nil {
		return "", s.fail(err)
	}
	if _, err := s.driver.ReadyForBreakpoints().Wait(ctx); err != nil {
		return "", s.fail(err)
	}

	if s.cfg.StopOnEntry && s.cfg.MainClass != "" {
		s.setPhase(PhaseArmingEntryBreakpoint)
		if _, err := s.driver.Exec(ctx, "stop in "+s.cfg.MainClass+".main", CategorySetBreakpoint); err != nil {
			return "", s.fail(err)
		}
	}

	s.setPhase(PhaseAwaitingInitialRun)
	if _, err := s.driver.Exec(ctx, "run", CategoryRun); err != nil {
		return "", s.fail(err)
	}
	thread, err := s.driver.StartupCompleted().Wait(ctx)
	if err != nil {
		return "", s.fail(err)
	}
	s.setPhase(PhaseReady)
	s.log.Info("session ready", "thread", thread)
	return thread, nil
}

func (s *Session) launchTarget(ctx context.Context) (string, error) {
	s.setPhase(PhaseWaitingForListener)
	timeout := s.cfg.listenTimeout()

	if s.cfg.attach() {
		addr := JoinHostPort(s.cfg.AttachHost, s.cfg.AttachPort)
		s.log.Info("attaching", "addr", addr)
		return addr, WaitForListener(ctx, addr, DefaultProbeInterval, timeout)
	}

	port, err := FreePort()
	if err != nil {
		return "", err
	}
	addr := JoinHostPort("localhost", port)
	env, err := targetEnv(s.cfg.EnvFile, s.cfg.Env)
	if err != nil {
		return "", err
	}

	args := append([]string{}, s.cfg.VMOptions...)
	args = append(args, fmt.Sprintf("-agentlib:jdwp=transport=dt_socket,server=y,suspend=y,address=%d", port))
	if len(s.cfg.ClassPath) > 0 {
		args = append(args, "-cp", strings.Join(s.cfg.ClassPath, string(os.PathListSeparator)))
	}
	args = append(args, s.cfg.MainClass)
	args = append(args, s.cfg.Args...)

	watch := newBannerWatch(s.cfg.ListenerBanner)
	output := func(stream string) func(io.Reader) {
		return func(r io.Reader) {
			pumpLines(r, func(line string) {
				watch.observe(line)
				s.driver.Publish(Event{Kind: EventOutput, Stream: stream, Text: line})
			})
		}
	}
	p, err := startProcess(processSpec{
		name:   "target",
		path:   s.cfg.tool("java"),
		args:   args,
		dir:    s.cfg.WorkDir,
		env:    env,
		stdout: output("stdout"),
		stderr: output("stderr"),
	}, s.log)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.target = p
	s.mu.Unlock()

	if s.cfg.ListenerBanner != "" {
		return addr, watch.wait(ctx, p.Exited(), timeout)
	}
	return addr, probeTarget(ctx, p.Exited(), addr, timeout)
}

// probeTarget waits for the target's debug socket, giving up as soon as the
// target exits.
func probeTarget(ctx context.Context, exited <-chan struct{}, addr string, timeout time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-exited:
			cancel()
		case <-ctx.Done():
		}
	}()
	err := WaitForListener(ctx, addr, DefaultProbeInterval, timeout)
	if err == nil {
		return nil
	}
	select {
	case <-exited:
		return fmt.Errorf("target exited before listening on %s", addr)
	default:
		return err
	}
}

func (s *Session) launchDebugger(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("debugger address %q: %w", addr, err)
	}
	args := []string{"-connect", fmt.Sprintf("com.sun.jdi.SocketAttach:hostname=%s,port=%s", host, port)}
	if len(s.cfg.SourcePath) > 0 {
		args = append(args, "-sourcepath", strings.Join(s.cfg.SourcePath, string(os.PathListSeparator)))
	}
	p, err := startProcess(processSpec{
		name: "jdb",
		path: s.cfg.tool("jdb"),
		args: args,
		dir:  s.cfg.WorkDir,
		stdout: func(r io.Reader) {
			if err := pumpChunks(r, s.driver.Feed); err != nil {
				s.driver.StreamError(err)
			}
			s.driver.EndOfStream()
		},
		stderr: func(r io.Reader) {
			pumpLines(r, func(line string) {
				s.driver.Publish(Event{Kind: EventOutput, Stream: "jdb-stderr", Text: line})
			})
		},
	}, s.log)
	if err != nil {
		return err
	}
	s.stdin.set(p.stdin)
	s.mu.Lock()
	s.debugger = p
	s.mu.Unlock()
	return nil
}

// Close asks jdb to exit, waits for it until ctx is done, then kills both
// processes.
func (s *Session) Close(ctx context.Context) error {
	snap := s.driver.Snapshot()
	if !snap.Exited && snap.ReadyForCommands {
		cmd := s.driver.Submit("exit", CategoryExit)
		select {
		case <-cmd.Done():
		case <-ctx.Done():
		}
	}
	s.driver.Fail(ErrExited)
	s.teardown(PhaseExited)
	return nil
}

// Done is closed once both processes have been torn down.
func (s *Session) Done() <-chan struct{} { return s.closed }

// Phase reports the lifecycle position of the session.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	p := s.phase
	s.mu.Unlock()
	switch p {
	case PhaseNotStarted, PhaseWaitingForListener, PhaseArmingEntryBreakpoint, PhaseFailed:
		return p
	}
	return s.driver.Phase()
}

// Snapshot returns the driver state labeled with the session phase.
func (s *Session) Snapshot() Snapshot {
	snap := s.driver.Snapshot()
	snap.Session = s.ID
	snap.Phase = s.Phase().String()
	return snap
}

func (s *Session) setPhase(p Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
	s.log.Debug("session phase", "phase", p.String())
}

func (s *Session) fail(err error) error {
	if !errors.Is(err, ErrStartupFailed) {
		err = fmt.Errorf("%w: %w", ErrStartupFailed, err)
	}
	s.log.Error("session startup failed", "err", err)
	s.driver.Fail(err)
	s.teardown(PhaseFailed)
	return err
}

func (s *Session) watchTermination() {
	select {
	case <-s.driver.Terminated().Done():
		s.teardown(PhaseExited)
	case <-s.closed:
	}
}

// teardown kills both processes exactly once.
func (s *Session) teardown(final Phase) {
	s.teardownOnce.Do(func() {
		s.mu.Lock()
		target, debugger, started := s.target, s.debugger, s.started
		if s.phase != PhaseFailed {
			s.phase = final
		}
		s.mu.Unlock()

		debugger.kill()
		target.kill()
		if started {
			s.metrics.sessionEnded()
		}
		close(s.closed)
		s.log.Info("session torn down", "phase", final.String())
	})
}

// switchWriter forwards to jdb's stdin once it exists.
type switchWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *switchWriter) set(w io.Writer) {
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	w := s.w
	s.mu.Unlock()
	if w == nil {
		return 0, errors.New("debugger is not running")
	}
	return w.Write(p)
}
