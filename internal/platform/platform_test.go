package platform

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"jdbrun/internal/jdb"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"
)

const vmStarted = "Initializing jdb ...\n> \nVM Started: No frames on the current call stack\n\nmain[1] "

// scriptedJDB answers commands written by the driver with canned output,
// fed back from its own goroutine.
type scriptedJDB struct {
	mu      sync.Mutex
	d       *jdb.Driver
	replies map[string]string
	ch      chan string
}

func newScriptedJDB(replies map[string]string) *scriptedJDB {
	s := &scriptedJDB{replies: replies, ch: make(chan string, 64)}
	go s.loop()
	return s
}

func (s *scriptedJDB) Write(p []byte) (int, error) {
	s.ch <- strings.TrimSpace(string(p))
	return len(p), nil
}

func (s *scriptedJDB) loop() {
	for cmd := range s.ch {
		s.mu.Lock()
		reply, ok := s.replies[cmd]
		d := s.d
		s.mu.Unlock()
		if ok && d != nil {
			d.Feed([]byte(reply))
		}
	}
}

// readyTarget returns a target whose driver accepts commands.
func readyTarget(t *testing.T, replies map[string]string) Target {
	t.Helper()
	replies["run"] = "> "
	js := newScriptedJDB(replies)
	d := jdb.NewDriver(js)
	js.mu.Lock()
	js.d = d
	js.mu.Unlock()
	t.Cleanup(func() { d.Fail(jdb.ErrExited) })

	d.Feed([]byte(vmStarted))
	d.Submit("run", jdb.CategoryRun)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := d.StartupCompleted().Wait(ctx)
	require.NoError(t, err)
	return Target{ID: "s1", MainClass: "demo.Foo", Driver: d}
}

// startNATS runs an in-process, in-memory JetStream server.
func startNATS(t *testing.T) (*nats.Conn, jetstream.JetStream) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	nc, ns, _, err := RunEmbeddedServer(ctx, EmbeddedServerConfig{
		InProcess:     true,
		JetStream:     true,
		StoreDir:      t.TempDir(),
		MemoryStorage: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		cancel()
		nc.Close()
		ns.Shutdown()
	})
	js, err := jetstream.New(nc)
	require.NoError(t, err)
	return nc, js
}

func startCore(t *testing.T, nc *nats.Conn, target Target) *Core {
	t.Helper()
	core, err := StartCore(context.Background(), nc, target, jetstream.MemoryStorage)
	require.NoError(t, err)
	t.Cleanup(func() {
		target.Driver.Fail(jdb.ErrExited)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		core.Close(ctx)
	})
	return core
}
