package jdb

import (
	"context"
	"errors"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitForListener_Open(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	err = WaitForListener(context.Background(), l.Addr().String(), 0, time.Second)
	assert.NoError(t, err)
}

func TestWaitForListener_OpensLate(t *testing.T) {
	port, err := FreePort()
	require.NoError(t, err)
	addr := JoinHostPort("127.0.0.1", port)

	go func() {
		time.Sleep(50 * time.Millisecond)
		l, err := net.Listen("tcp", addr)
		if err != nil {
			return
		}
		time.Sleep(time.Second)
		l.Close()
	}()

	assert.NoError(t, WaitForListener(context.Background(), addr, 5*time.Millisecond, 2*time.Second))
}

func TestWaitForListener_Timeout(t *testing.T) {
	port, err := FreePort()
	require.NoError(t, err)

	start := time.Now()
	err = WaitForListener(context.Background(), JoinHostPort("127.0.0.1", port), 5*time.Millisecond, 100*time.Millisecond)
	assert.ErrorIs(t, err, ErrListenerTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestWaitForListener_DialDeadline(t *testing.T) {
	attempts := 0
	dial := func(ctx context.Context, network, addr string) (net.Conn, error) {
		attempts++
		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		time.Sleep(time.Until(deadline) - 5*time.Millisecond)
		return nil, &net.OpError{Op: "dial", Net: network, Err: os.ErrDeadlineExceeded}
	}

	err := waitForListener(context.Background(), dial, "127.0.0.1:5005", 0, 50*time.Millisecond)
	assert.ErrorIs(t, err, ErrListenerTimeout)
	assert.Equal(t, 1, attempts)
}

func TestWaitForListener_OtherDialError(t *testing.T) {
	boom := errors.New("no route to host")
	dial := func(context.Context, string, string) (net.Conn, error) { return nil, boom }

	err := waitForListener(context.Background(), dial, "127.0.0.1:5005", 0, time.Second)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrListenerTimeout)
}

func TestJoinHostPort(t *testing.T) {
	assert.Equal(t, "localhost:8000", JoinHostPort("", 8000))
	assert.Equal(t, "[::1]:8000", JoinHostPort("::1", 8000))
}

func TestBannerWatch(t *testing.T) {
	w := newBannerWatch("Listening for transport dt_socket")
	exited := make(chan struct{})
	go w.observe("Listening for transport dt_socket at address: 5005")
	assert.NoError(t, w.wait(context.Background(), exited, time.Second))

	w = newBannerWatch("Listening")
	close(exited)
	assert.Error(t, w.wait(context.Background(), exited, time.Second))

	w = newBannerWatch("Listening")
	err := w.wait(context.Background(), make(chan struct{}), 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrListenerTimeout)
}
