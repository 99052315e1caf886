// Package server exposes evaluations of configured checks over HTTP. Every
// request runs one stateless evaluation; nothing is kept between requests
// besides the gauges of the last evaluation.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/capatazlib/go-daemoncheck/internal/notify"
	"github.com/capatazlib/go-daemoncheck/internal/probe"
	"github.com/capatazlib/go-daemoncheck/internal/severity"
)

// CheckResponse is the body returned by the check endpoint
type CheckResponse struct {
	Check      string `json:"check"`
	RunID      string `json:"runId"`
	Severity   string `json:"severity"`
	ExitCode   int    `json:"exitCode"`
	Summary    string `json:"summary"`
	MatchCount int    `json:"matchCount"`
	Age        int64  `json:"ageSeconds"`
}

// Error represents an API error
type Error struct {
	Error string `json:"error"`
}

// Server answers check requests with the given probe
type Server struct {
	ll      logrus.FieldLogger
	probe   *probe.Probe
	metrics *notify.Metrics
	checks  map[string]probe.Input
}

// NewServer creates a new HTTP check server for the given named inputs.
// Requests can only evaluate these inputs. The probe should report to the
// given metrics so that /metrics reflects the evaluations.
func NewServer(
	ll logrus.FieldLogger,
	p *probe.Probe,
	m *notify.Metrics,
	checks map[string]probe.Input,
) *Server {
	return &Server{
		ll:      ll,
		probe:   p,
		metrics: m,
		checks:  checks,
	}
}

// NewHTTPHandler creates a `http.Handler` with the check and metrics
// endpoints.
func (s *Server) NewHTTPHandler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/check/{name}", s.check).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})).Methods("GET")
	return r
}

func handleError(resp http.ResponseWriter, err error, code int) {
	data, _ := json.Marshal(Error{Error: err.Error()})
	resp.Header().Set("Content-Type", "application/json")
	http.Error(resp, string(data), code)
}

// statusCode maps a severity to the HTTP status of the check endpoint
func statusCode(sev severity.Severity) int {
	switch sev {
	case severity.OK, severity.Warning:
		return http.StatusOK
	default:
		return http.StatusServiceUnavailable
	}
}

func (s *Server) check(response http.ResponseWriter, request *http.Request) {
	name := mux.Vars(request)["name"]
	in, ok := s.checks[name]
	if !ok {
		handleError(response, fmt.Errorf("unknown check %q", name), http.StatusNotFound)
		return
	}

	res := s.probe.Evaluate(request.Context(), in)
	data, err := json.Marshal(CheckResponse{
		Check:      name,
		RunID:      res.RunID,
		Severity:   res.Severity.String(),
		ExitCode:   res.ExitCode(),
		Summary:    res.Summary,
		MatchCount: res.MatchCount,
		Age:        res.Age,
	})
	if err != nil {
		handleError(response, err, http.StatusInternalServerError)
		return
	}

	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(statusCode(res.Severity))
	_, err = response.Write(data)
	if err != nil {
		s.ll.WithError(err).Warn("Check: failed to write response to client")
	}
}
