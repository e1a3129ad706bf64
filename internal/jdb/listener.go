package jdb

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"
)

// DefaultProbeInterval is the delay between connection attempts while waiting
// for the target's debug listener.
const DefaultProbeInterval = 10 * time.Millisecond

// WaitForListener dials addr until it accepts a connection. A refused
// connection is retried every interval; any other dial error fails at once.
// If nothing accepts within timeout the error wraps ErrListenerTimeout.
func WaitForListener(ctx context.Context, addr string, interval, timeout time.Duration) error {
	var d net.Dialer
	return waitForListener(ctx, d.DialContext, addr, interval, timeout)
}

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

func waitForListener(ctx context.Context, dial dialFunc, addr string, interval, timeout time.Duration) error {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	attempts := 0
	for {
		attempts++
		conn, err := dial(ctx, "tcp", addr)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		// The dialer's own deadline can fire before ctx reports it.
		if ctx.Err() != nil || errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s after %d attempts", ErrListenerTimeout, addr, attempts)
		}
		if !errors.Is(err, syscall.ECONNREFUSED) {
			return fmt.Errorf("connection failed (%w)", err)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s after %d attempts", ErrListenerTimeout, addr, attempts)
		case <-time.After(interval):
		}
	}
}

// FreePort asks the kernel for an unused loopback TCP port.
func FreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("reserve port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// JoinHostPort formats a dial address, defaulting host to localhost.
func JoinHostPort(host string, port int) string {
	if host == "" {
		host = "localhost"
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// bannerWatch closes Seen the first time a line containing the banner is
// observed.
type bannerWatch struct {
	banner string
	once   sync.Once
	seen   chan struct{}
}

func newBannerWatch(banner string) *bannerWatch {
	return &bannerWatch{banner: banner, seen: make(chan struct{})}
}

func (w *bannerWatch) observe(line string) {
	if w == nil || w.banner == "" {
		return
	}
	if strings.Contains(line, w.banner) {
		w.once.Do(func() { close(w.seen) })
	}
}

// wait blocks until the banner is seen, exited is closed, or timeout passes.
func (w *bannerWatch) wait(ctx context.Context, exited <-chan struct{}, timeout time.Duration) error {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-w.seen:
		return nil
	case <-exited:
		return fmt.Errorf("target exited before printing %q", w.banner)
	case <-t.C:
		return fmt.Errorf("%w: banner %q not seen", ErrListenerTimeout, w.banner)
	case <-ctx.Done():
		return ctx.Err()
	}
}
