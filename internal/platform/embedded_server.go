package platform

import (
	"context"
	"errors"
	"net/url"
	"time"

	"log/slog"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// EmbeddedServerConfig holds options for running the embedded server.
type EmbeddedServerConfig struct {
	InProcess       bool
	Port            int // 0 is the NATS default, -1 picks a free port
	EnableLogging   bool
	JetStream       bool
	JetStreamDomain string
	LeafNodeURL     string // empty disables leaf node
	LeafNodeCreds   string // optional, only used if LeafNodeURL is set
	StoreDir        string // optional, for JetStream file storage
	// MemoryStorage keeps streams and buckets in memory instead of StoreDir.
	MemoryStorage bool
}

func (c EmbeddedServerConfig) storage() jetstream.StorageType {
	if c.MemoryStorage {
		return jetstream.MemoryStorage
	}
	return jetstream.FileStorage
}

// RunEmbeddedServer starts an embedded NATS server with the given config and
// returns a client connection, the server instance, and an error channel.
func RunEmbeddedServer(ctx context.Context, cfg EmbeddedServerConfig) (*nats.Conn, *server.Server, <-chan error, error) {
	var leafRemotes []*server.RemoteLeafOpts
	if cfg.LeafNodeURL != "" {
		leafURL, err := url.Parse(cfg.LeafNodeURL)
		if err != nil {
			return nil, nil, nil, err
		}
		leafRemotes = []*server.RemoteLeafOpts{{
			URLs:        []*url.URL{leafURL},
			Credentials: cfg.LeafNodeCreds,
		}}
	}

	opts := &server.Options{
		ServerName:      "jdbrun",
		DontListen:      cfg.InProcess,
		JetStream:       cfg.JetStream,
		JetStreamDomain: cfg.JetStreamDomain,
		StoreDir:        cfg.StoreDir,
	}
	if !cfg.InProcess {
		opts.Port = cfg.Port
	}
	if len(leafRemotes) > 0 {
		opts.LeafNode = server.LeafNodeOpts{Remotes: leafRemotes}
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.EnableLogging {
		ns.SetLogger(NewNATSServerLogger(slog.Default()), false, false)
	}
	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		return nil, nil, nil, errors.New("NATS Server timeout")
	}

	clientOpts := []nats.Option{nats.Name("jdbrun")}
	if cfg.InProcess {
		clientOpts = append(clientOpts, nats.InProcessServer(ns))
	}

	nc, err := nats.Connect(ns.ClientURL(), clientOpts...)
	if err != nil {
		ns.Shutdown()
		return nil, nil, nil, err
	}

	errCh := make(chan error, 1)
	go func() {
		<-ctx.Done()
		// Shutdown is the caller's; a second one panics inside the server.
		errCh <- ctx.Err()
	}()

	return nc, ns, errCh, nil
}
