package cli

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/matzehuels/decrepit/pkg/buildinfo"
	"github.com/matzehuels/decrepit/pkg/errors"
	"github.com/matzehuels/decrepit/pkg/pipeline"
	"github.com/matzehuels/decrepit/pkg/report"
)

const (
	defaultServeAddr    = "localhost:8080"
	defaultCheckTimeout = 2 * time.Minute
)

// serveCommand creates the "serve" command, a read-only JSON API over the
// same checks the CLI runs.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve version checks over HTTP",
		Long: `Serve version checks as a read-only JSON API.

Endpoints:
  GET /healthz                          liveness and build version
  GET /distros?date=                    distributions and releases in effect
  GET /versions?date=&distro=&fast=     every distribution with its version
  GET /minimum?date=&distro=&fast=      the oldest known version

distro may be repeated and takes the same name[:release][,...] values as
--distro.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", defaultServeAddr, "listen address")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string) error {
	logger := loggerFromContext(ctx)

	e, err := c.newEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	srv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(&server{env: e, now: c.now, logger: logger}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	logger.Info("serving", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return ctx.Err()
	}
}

// =============================================================================
// HTTP API
// =============================================================================

// server handles API requests against one env.
type server struct {
	env    *env
	now    func() time.Time
	logger *log.Logger
}

func newRouter(s *server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(defaultCheckTimeout))

	r.Get("/healthz", s.healthz)
	r.Get("/distros", s.distros)
	r.Get("/versions", s.versions)
	r.Get("/minimum", s.minimum)
	return r
}

type distrosResponse struct {
	Date     string            `json:"date"`
	Profile  string            `json:"profile"`
	Releases map[string]string `json:"releases"`
}

type versionsResponse struct {
	RunID   string              `json:"run_id"`
	Date    string              `json:"date"`
	Results []map[string]string `json:"results"`
}

type minimumResponse struct {
	RunID   string `json:"run_id"`
	Date    string `json:"date"`
	Version string `json:"version"`
}

type errorResponse struct {
	Code  errors.Code `json:"code,omitempty"`
	Error string      `json:"error"`
}

func (s *server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": buildinfo.Version})
}

func (s *server) distros(w http.ResponseWriter, r *http.Request) {
	p, err := s.env.newPlan(r.URL.Query().Get("date"), r.URL.Query()["distro"], s.now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, distrosResponse{Date: p.Date, Profile: p.Profile.Date, Releases: p.Releases})
}

func (s *server) versions(w http.ResponseWriter, r *http.Request) {
	p, rep, err := s.check(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, versionsResponse{
		RunID:   rep.RunID,
		Date:    p.Date,
		Results: report.Objects(rep.Results, true),
	})
}

func (s *server) minimum(w http.ResponseWriter, r *http.Request) {
	p, rep, err := s.check(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, minimumResponse{RunID: rep.RunID, Date: p.Date, Version: report.Minimum(rep)})
}

// check runs the batch described by the request's query parameters.
func (s *server) check(r *http.Request) (*plan, *pipeline.Report, error) {
	q := r.URL.Query()
	fast, err := parseBool(q.Get("fast"))
	if err != nil {
		return nil, nil, err
	}
	p, err := s.env.newPlan(q.Get("date"), q["distro"], s.now())
	if err != nil {
		return nil, nil, err
	}
	rep, err := s.env.runner.Execute(r.Context(), p.options(s.env.cfg, fast))
	if err != nil {
		return nil, nil, err
	}
	return p, rep, nil
}

func parseBool(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, errors.New(errors.ErrCodeInvalidInput, "invalid boolean %q", s)
	}
	return b, nil
}

// fail maps err onto an HTTP status and writes it as JSON.
func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errors.ErrCodeInvalidInput):
		status = http.StatusBadRequest
	case stderrors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	s.logger.Debug("request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "err", err)
	writeJSON(w, status, errorResponse{Code: errors.GetCode(err), Error: ErrorMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
