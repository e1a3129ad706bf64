package platform

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServerConfig holds HTTP server tunables.
type HTTPServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	EnableTLS    bool   // whether to use HTTPS
	CertFile     string // path to TLS certificate
	KeyFile      string // path to TLS private key
}

const viewerCookie = "jdbrun"

// NewCookieStore returns the viewer cookie store. An empty key gets a random
// one, so cookies do not survive a restart.
func NewCookieStore(key string) *sessions.CookieStore {
	k := []byte(key)
	if len(k) == 0 {
		k = securecookie.GenerateRandomKey(32)
	}
	return sessions.NewCookieStore(k)
}

// ViewerMiddleware assigns each browser a stable viewer id and puts it in
// the request context.
func ViewerMiddleware(store *sessions.CookieStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, _ := store.Get(r, viewerCookie)
			id, ok := sess.Values["id"].(string)
			if !ok || id == "" {
				id = uuid.NewString()
				sess.Values["id"] = id
				sess.Options = &sessions.Options{
					Path:     "/",
					MaxAge:   60 * 60 * 24 * 7, // 1 week
					HttpOnly: true,
					Secure:   r.TLS != nil,
					SameSite: http.SameSiteLaxMode,
				}
				_ = sess.Save(r, w)
			}
			ctx := context.WithValue(r.Context(), viewerCtxKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type viewerCtxKey struct{}

// ViewerID returns the viewer id from the request context.
func ViewerID(r *http.Request) string {
	id, _ := r.Context().Value(viewerCtxKey{}).(string)
	return id
}

// NewRouter builds the HTTP surface for target.
func NewRouter(nc *nats.Conn, js jetstream.JetStream, target Target, cfg *AppConfig) http.Handler {
	var sources fs.FS
	if cfg.Session.SourceRoot != "" {
		sources = os.DirFS(cfg.Session.SourceRoot)
	}

	r := chi.NewRouter()
	r.Use(ViewerMiddleware(NewCookieStore(cfg.CookieKey)))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(chiLogger)
	r.Use(middleware.Recoverer)

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Get("/", Index(target))
	r.Get("/health", Health)
	r.Get("/state", State(target))
	r.Post("/command", SendCommand(nc, target, cfg.Session.CommandTimeout))
	r.Get("/events", EventFeed(js, target, sources))
	r.Get("/source", Source(sources))
	return r
}

// RunHTTPServer serves handler and returns a channel that receives an error
// when the server exits (gracefully or not).
func RunHTTPServer(ctx context.Context, handler http.Handler, cfg HTTPServerConfig) <-chan error {
	errCh := make(chan error, 1)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errCh <- err
			return
		}
		errCh <- ctx.Err()
	}()

	go func() {
		slog.Info("http server listening", "addr", srv.Addr, "tls", cfg.EnableTLS)
		var err error
		if cfg.EnableTLS {
			err = srv.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	return errCh
}

// chiLogger is a lightweight slog adapter for chi middleware.
func chiLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t0 := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		duration := time.Since(t0)
		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, routePattern, fmt.Sprint(status)).Inc()
		HTTPDuration.WithLabelValues(r.Method, routePattern).Observe(duration.Seconds())
		slog.Info("http", "method", r.Method, "path", r.URL.Path, "route", routePattern, "status", status, "duration", duration)
	})
}
