package jdb

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// mergeEnv layers environment for the target process:
//  1. OS env
//  2. env file values (only if the key is still unset)
//  3. explicit overrides
func mergeEnv(fileEnv, overrides map[string]string) map[string]string {
	out := map[string]string{}
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			out[parts[0]] = parts[1]
		}
	}
	for k, v := range fileEnv {
		if _, exists := out[k]; !exists {
			out[k] = v
		}
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// mapToEnv converts map[string]string → []string{"k=v"} for exec.Cmd.Env.
func mapToEnv(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	return out
}

// targetEnv reads envFile (if any) and layers it with overrides.
func targetEnv(envFile string, overrides map[string]string) ([]string, error) {
	var fileEnv map[string]string
	if envFile != "" {
		var err error
		if fileEnv, err = godotenv.Read(envFile); err != nil {
			return nil, fmt.Errorf("read env file %s: %w", envFile, err)
		}
	}
	return mapToEnv(mergeEnv(fileEnv, overrides)), nil
}

// process is a spawned child with its stdio pumps.
type process struct {
	name  string
	cmd   *exec.Cmd
	stdin io.WriteCloser

	pumps    sync.WaitGroup
	exited   chan struct{}
	exitCode int
	waitErr  error
	killOnce sync.Once
	log      *slog.Logger
}

type processSpec struct {
	name string
	path string
	args []string
	dir  string
	env  []string
	// stdout and stderr receive output as it arrives; either may be nil.
	stdout func(io.Reader)
	stderr func(io.Reader)
	// onExit runs after both pumps finished and the process was reaped.
	onExit func(code int, err error)
}

func startProcess(spec processSpec, log *slog.Logger) (*process, error) {
	cmd := exec.Command(spec.path, spec.args...)
	cmd.Dir = spec.dir
	if spec.env != nil {
		cmd.Env = spec.env
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%s stdin: %w", spec.name, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%s stdout: %w", spec.name, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%s stderr: %w", spec.name, err)
	}

	log.Info("starting process", "name", spec.name, "path", spec.path, "args", spec.args, "dir", spec.dir)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", spec.name, err)
	}

	p := &process{name: spec.name, cmd: cmd, stdin: stdin, exited: make(chan struct{}), log: log}
	p.pump(stdout, spec.stdout)
	p.pump(stderr, spec.stderr)
	go p.waitForExit(spec.onExit)
	return p, nil
}

func (p *process) pump(r io.Reader, fn func(io.Reader)) {
	p.pumps.Add(1)
	go func() {
		defer p.pumps.Done()
		if fn == nil {
			_, _ = io.Copy(io.Discard, r)
			return
		}
		fn(r)
	}()
}

// waitForExit reaps the process once its output has been drained.
func (p *process) waitForExit(onExit func(int, error)) {
	p.pumps.Wait()
	err := p.cmd.Wait()
	code := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		} else {
			code = -1
		}
	}
	p.exitCode, p.waitErr = code, err
	p.log.Info("process exited", "name", p.name, "pid", p.cmd.Process.Pid, "code", code, "err", err)
	close(p.exited)
	if onExit != nil {
		onExit(code, err)
	}
}

// kill stops the process; it is safe to call more than once.
func (p *process) kill() {
	if p == nil {
		return
	}
	p.killOnce.Do(func() {
		_ = p.stdin.Close()
		select {
		case <-p.exited:
			return
		default:
		}
		if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			p.log.Warn("kill failed", "name", p.name, "err", err)
		}
	})
}

// Exited is closed once the process has been reaped.
func (p *process) Exited() <-chan struct{} { return p.exited }

// pumpLines calls fn for each line read from r.
func pumpLines(r io.Reader, fn func(line string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		fn(scanner.Text())
	}
}

// pumpChunks forwards raw reads from r to feed; jdb prompts are not newline
// terminated so line scanning would stall on them. The error is nil on EOF.
func pumpChunks(r io.Reader, feed func([]byte)) error {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			feed(buf[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				return nil
			}
			return err
		}
	}
}
