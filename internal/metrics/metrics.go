package metrics

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	APICalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "snsapi_api_calls_total",
		Help: "Total signed API calls by method",
	}, []string{"method"})
	APIErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "snsapi_api_errors_total",
		Help: "API-level errors reported by the platform",
	}, []string{"method", "code"})
	APICallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "snsapi_api_call_duration_seconds",
		Help:    "Signed API call duration seconds, session key fetch included",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
	MessagesParsed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "snsapi_messages_parsed_total",
		Help: "Feed items normalized into messages",
	}, []string{"variant"})
	ParseFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "snsapi_parse_failures_total",
		Help: "Feed items that aborted a timeline read",
	}, []string{"variant"})
	SyncRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "snsapi_sync_runs_total",
		Help: "Total home timeline sync runs",
	})
	SyncErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "snsapi_sync_errors_total",
		Help: "Total home timeline sync errors",
	})
	SyncDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "snsapi_sync_duration_seconds",
		Help:    "Home timeline sync duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "snsapi_command_runs_total",
		Help: "CLI command runs",
	}, []string{"cmd"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "snsapi_command_errors_total",
		Help: "CLI command failures",
	}, []string{"cmd"})
)

func init() {
	prometheus.MustRegister(APICalls, APIErrors, APICallDuration, MessagesParsed, ParseFailures,
		SyncRuns, SyncErrors, SyncDuration, CommandRuns, CommandErrors)
}

// Handler returns the mux served by StartServer.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return mux
}

// StartServer binds addr (e.g., ":9090") and serves Handler in the
// background. Bind errors are returned; an empty addr falls back to
// METRICS_ADDR and, when that is unset too, starts nothing.
func StartServer(addr string) (net.Addr, error) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return nil, nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen %s: %w", addr, err)
	}
	go func() { _ = http.Serve(ln, Handler()) }()
	return ln.Addr(), nil
}

// ObserveCall records a finished API call.
func ObserveCall(method string, start time.Time) {
	APICallDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

// ObserveSyncDuration records a sync run duration.
func ObserveSyncDuration(start time.Time) {
	SyncDuration.Observe(time.Since(start).Seconds())
}

func IncCommandRun(cmd string)   { CommandRuns.WithLabelValues(cmd).Inc() }
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }
