package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/sync/errgroup"

	"github.com/Seednode/bingobox/bingo"
	"github.com/Seednode/bingobox/snapshot"
)

const (
	logDate string        = `2006-01-02T15:04:05.000-07:00`
	timeout time.Duration = 10 * time.Second
)

func securityHeaders(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
	w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
	w.Header().Set("Permissions-Policy", "geolocation=(), midi=(), sync-xhr=(), microphone=(), camera=(), magnetometer=(), gyroscope=(), payment=()")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'self'")

	if cfg.scheme() == "https" {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
}

func realIP(r *http.Request) string {
	host, port, _ := net.SplitHostPort(r.RemoteAddr)
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	} else if ip := r.Header.Get("X-Real-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	}
	if net.ParseIP(host) != nil && strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return host + ":" + port
	}
	return host
}

func serveVersion(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusOK)

		written, err := w.Write([]byte("bingobox v" + releaseVersion + "\n"))
		if err != nil {
			reportErr(errs, err)

			return
		}

		logf(cfg, "SERVE: Version page (%s) to %s in %s",
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

// reportErr hands err to the error log without blocking once nobody is
// draining errs.
func reportErr(errs chan<- error, err error) {
	select {
	case errs <- err:
	default:
	}
}

// loadSession restores the last saved session, or starts empty when there is
// nothing usable in the store.
func loadSession(ctx context.Context, cfg *Config, store snapshot.Store) *bingo.Session {
	snap, err := store.Load(ctx)
	switch {
	case errors.Is(err, snapshot.ErrNotFound):
		logf(cfg, "STORE: No saved session, starting empty")

		return bingo.NewSession()
	case err != nil:
		logf(cfg, "STORE: Failed to load snapshot, starting empty: %v", err)

		return bingo.NewSession()
	}

	if snap.CurrentGameID != "" {
		logf(cfg, "STORE: Restored game %s", snap.CurrentGameID)
	}

	return bingo.Restore(snap)
}

// runGame runs the hub and the snapshot writer until ctx is cancelled. The
// writer is stopped only once the hub has returned, so the hub's final
// snapshot is still written.
func runGame(ctx context.Context, hub *bingo.Hub, writer *snapshot.Writer) error {
	writerCtx, stopWriter := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWriter()

	var g errgroup.Group

	g.Go(func() error {
		return writer.Run(writerCtx)
	})

	g.Go(func() error {
		defer stopWriter()

		return hub.Run(ctx)
	})

	return g.Wait()
}

func newRouter(cfg *Config, hub *bingo.Hub, errs chan<- error) *httprouter.Router {
	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		logf(cfg, "SERVE: Recovered from panic on %s: %v", r.URL.Path, i)

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusInternalServerError)

		io.WriteString(w, "An error has occurred. Please try again.\n")
	}

	mux.GET(cfg.prefix+"/healthz", serveHealthCheck(cfg, errs))

	mux.GET(cfg.prefix+"/robots.txt", serveRobots(cfg, errs))

	mux.GET(cfg.prefix+"/version", serveVersion(cfg, errs))

	if cfg.profile {
		registerProfileHandlers(cfg, mux)
	}

	registerBingoGame(cfg, "/bingo", hub, mux, errs)

	return mux
}

func ServePage(ctx context.Context, cfg *Config) error {
	var err error

	timeZone := os.Getenv("TZ")
	if timeZone != "" {
		time.Local, err = time.LoadLocation(timeZone)
		if err != nil {
			return err
		}
	}

	logf(cfg, "START: bingobox v%s", releaseVersion)

	store, err := snapshot.Open(ctx, cfg.store)
	if err != nil {
		return fmt.Errorf("open store %q: %w", cfg.store, err)
	}
	defer store.Close()

	session := loadSession(ctx, cfg, store)

	logger := func(format string, args ...any) {
		logf(cfg, format, args...)
	}

	writer := snapshot.NewWriter(store, logger)
	hub := bingo.NewHub(session, writer, logger)

	errs := make(chan error, 64)

	cfg.prefix = strings.TrimSuffix(cfg.prefix, "/")

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           newRouter(cfg, hub, errs),
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
		WriteTimeout:      timeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runGame(gctx, hub, writer)
	})

	g.Go(func() error {
		for {
			select {
			case err := <-errs:
				logf(cfg, "SERVE: %v", err)
			case <-gctx.Done():
				return nil
			}
		}
	})

	g.Go(func() error {
		var err error

		logf(cfg, "SERVE: Listening on %s://%s%s/", cfg.scheme(), srv.Addr, cfg.prefix)

		if cfg.tlsKey != "" && cfg.tlsCert != "" {
			err = srv.ListenAndServeTLS(cfg.tlsCert, cfg.tlsKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
