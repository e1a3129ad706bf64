package platform

import (
	"context"
	"errors"
	"log/slog"

	"jdbrun/internal/jdb"
)

// Run starts the broker, the debug session and (unless headless) the HTTP
// server, then serves until ctx ends or the session exits. A startup
// failure is returned; a normal exit returns nil.
func Run(ctx context.Context, cfg *AppConfig, launch jdb.LaunchConfig, metrics *jdb.Metrics) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	nc, ns, natsErrCh, err := RunEmbeddedServer(ctx, *cfg.NatsCfg)
	if err != nil {
		return err
	}
	defer ns.Shutdown()
	defer nc.Close()

	sess := jdb.NewSession(launch, jdb.WithSessionMetrics(metrics))
	target := SessionTarget(sess, launch.MainClass)
	log := slog.Default().With("session", sess.ID)

	core, err := StartCore(ctx, nc, target, cfg.NatsCfg.storage())
	if err != nil {
		return err
	}

	var httpErrCh <-chan error
	if !cfg.Flags.Headless {
		httpErrCh = RunHTTPServer(ctx, NewRouter(nc, core.JetStream(), target, cfg), *cfg.HTTPSrvCfg)
	}

	shutdown := func(cause error) {
		closeCtx, cancelClose := context.WithTimeout(context.WithoutCancel(ctx), cfg.Session.ShutdownTimeout)
		defer cancelClose()
		_ = sess.Close(closeCtx)
		core.SessionExited(closeCtx, cause)
		core.Close(closeCtx)
	}

	thread, err := sess.Start(ctx)
	if err != nil {
		log.Error("session failed to start", "err", err)
		shutdown(err)
		return err
	}
	log.Info("session ready", "thread", thread)
	core.SessionStarted(ctx, thread)

	select {
	case <-ctx.Done():
		log.Info("shutdown requested")
	case <-sess.Done():
		log.Info("debuggee exited")
	case err := <-natsErrCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("embedded server error", "err", err)
		}
	case err := <-httpErrCh:
		log.Error("http server error", "err", err)
	}
	shutdown(nil)
	return nil
}
