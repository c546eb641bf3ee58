/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package controller

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/scoir/credex/pkg/framework"
)

const (
	APIKeyHeaderName       = "X-API-Key"
	DefaultShutdownTimeout = 15 * time.Second
)

// Task runs alongside the HTTP server until ctx is done.
type Task func(ctx context.Context) error

type Option func(*Runner)

func WithTask(t Task) Option {
	return func(r *Runner) {
		r.tasks = append(r.tasks, t)
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		r.log = l.Named("controller")
	}
}

func WithShutdownTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.grace = d
	}
}

type Runner struct {
	addr    string
	handler http.Handler
	tasks   []Task
	grace   time.Duration
	log     *zap.Logger
}

func New(ep *framework.Endpoint, h http.Handler, opts ...Option) (*Runner, error) {
	if ep == nil || ep.Port == 0 {
		return nil, errors.New("unable to create controller: no api endpoint configured")
	}

	r := &Runner{
		addr:    ep.Address(),
		handler: h,
		grace:   DefaultShutdownTimeout,
		log:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Launch listens on the configured address and serves until ctx is done or something fails.
func (r *Runner) Launch(ctx context.Context) error {
	lis, err := net.Listen("tcp", r.addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", r.addr)
	}

	return r.Serve(ctx, lis)
}

// Serve runs the HTTP server on lis and every task. The first failure stops the rest; in-flight
// requests get the shutdown timeout to finish.
func (r *Runner) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{Handler: r.handler}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r.log.Info("api listening", zap.String("address", lis.Addr().String()))
		err := srv.Serve(lis)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "api server exited")
	})

	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), r.grace)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	for _, t := range r.tasks {
		t := t
		g.Go(func() error {
			return t(gctx)
		})
	}

	err := g.Wait()
	r.log.Info("shutdown complete", zap.Error(err))
	return err
}

// TokenAuth rejects requests whose X-API-Key header does not carry token.
func TokenAuth(token string) func(h http.Handler) http.Handler {
	requiredToken := sha256.Sum256([]byte(token))

	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			authHeader := req.Header.Get(APIKeyHeaderName)
			if authHeader == "" {
				http.Error(w, "Not authorized", http.StatusUnauthorized)
				return
			}

			givenToken := sha256.Sum256([]byte(authHeader))
			if subtle.ConstantTimeCompare(givenToken[:], requiredToken[:]) != 1 {
				http.Error(w, "Not authorized", http.StatusUnauthorized)
				return
			}

			h.ServeHTTP(w, req)
		})
	}
}

func CorsHandler() func(h http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "PUT", "PATCH", "POST", "DELETE"},
		AllowedHeaders: []string{"Origin", "Content-Type", "Authentication", "Authorization", "Accept",
			"If-Modified-Since", "Cache-Control", "Pragma", APIKeyHeaderName},
		ExposedHeaders:   []string{"Content-Length", "Content-Type", "Cache-Control", "Last-Modified"},
		AllowCredentials: true,
	})
	return c.Handler
}

// Logger logs every request at debug level.
func Logger(l *zap.Logger) func(h http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			h.ServeHTTP(w, req)
			l.Debug("request", zap.String("method", req.Method), zap.String("path", req.URL.Path),
				zap.Duration("elapsed", time.Since(start)))
		})
	}
}
