package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/playforge/netcore/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus counters/gauges for the session-sync server.
var (
	HandshakesAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "handshakes_accepted_total",
		Help: "Total reliable handshakes that passed game_id validation.",
	})
	HandshakesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "handshakes_rejected_total",
		Help: "Total reliable handshakes rejected (game_id mismatch or framing error).",
	})
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sessions_active",
		Help: "Current number of live client sessions.",
	})
	SessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sessions_total",
		Help: "Total sessions ever established.",
	})
	FastRxPackets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fast_rx_packets_total",
		Help: "Total well-formed unreliable datagrams received from clients.",
	})
	FastRxMalformed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fast_rx_malformed_total",
		Help: "Total unreliable datagrams dropped for failing to decode.",
	})
	BroadcastsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "broadcasts_sent_total",
		Help: "Total broadcast snapshots fanned out to clients.",
	})
	BroadcastSendErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "broadcast_send_errors_total",
		Help: "Total per-recipient broadcast send failures (logged and skipped).",
	})
	BroadcastFanout = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "broadcast_fanout",
		Help: "Number of recipients the most recent broadcast was sent to successfully.",
	})
	BroadcastQueueDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "broadcast_queue_coalesced_total",
		Help: "Total broadcast requests coalesced because a prior one was still pending.",
	})
	DiscoveryAdvertisements = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discovery_advertisements_sent_total",
		Help: "Total discovery advertisement datagrams sent.",
	})
	DiscoveryHostsFound = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "discovery_hosts_found",
		Help: "Number of distinct hosts returned by the most recent Find call.",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})

	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality).
const (
	ErrListen    = "listen"
	ErrAccept    = "accept"
	ErrHandshake = "handshake"
	ErrConnRead  = "conn_read"
	ErrConnWrite = "conn_write"
	ErrFastRead  = "fast_read"
	ErrFastWrite = "fast_write"
	ErrDiscovery = "discovery"
	ErrContext   = "context_cancelled"
)

// StartHTTP serves Prometheus metrics at /metrics and readiness at /ready.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// Local mirrored counters for cheap periodic logging (avoids in-process scraping).
var (
	localHandshakesAccepted uint64
	localHandshakesRejected uint64
	localFastRx             uint64
	localFastMalformed      uint64
	localBroadcasts         uint64
	localBroadcastErrors    uint64
	localSessionsActive     uint64
	localErrors             uint64
)

// Snapshot is a cheap copy of local counters.
type Snapshot struct {
	HandshakesAccepted uint64
	HandshakesRejected uint64
	FastRx             uint64
	FastMalformed      uint64
	Broadcasts         uint64
	BroadcastErrors    uint64
	SessionsActive     uint64
	Errors             uint64
}

func Snap() Snapshot {
	return Snapshot{
		HandshakesAccepted: atomic.LoadUint64(&localHandshakesAccepted),
		HandshakesRejected: atomic.LoadUint64(&localHandshakesRejected),
		FastRx:             atomic.LoadUint64(&localFastRx),
		FastMalformed:      atomic.LoadUint64(&localFastMalformed),
		Broadcasts:         atomic.LoadUint64(&localBroadcasts),
		BroadcastErrors:    atomic.LoadUint64(&localBroadcastErrors),
		SessionsActive:     atomic.LoadUint64(&localSessionsActive),
		Errors:             atomic.LoadUint64(&localErrors),
	}
}

func IncHandshakeAccepted() {
	HandshakesAccepted.Inc()
	atomic.AddUint64(&localHandshakesAccepted, 1)
}

func IncHandshakeRejected() {
	HandshakesRejected.Inc()
	atomic.AddUint64(&localHandshakesRejected, 1)
}

func SetSessionsActive(n int) {
	SessionsActive.Set(float64(n))
	atomic.StoreUint64(&localSessionsActive, uint64(n))
}

func IncSessionsTotal() { SessionsTotal.Inc() }

func IncFastRx() {
	FastRxPackets.Inc()
	atomic.AddUint64(&localFastRx, 1)
}

func IncFastMalformed() {
	FastRxMalformed.Inc()
	atomic.AddUint64(&localFastMalformed, 1)
}

func IncBroadcast(fanout int) {
	BroadcastsSent.Inc()
	BroadcastFanout.Set(float64(fanout))
	atomic.AddUint64(&localBroadcasts, 1)
}

func IncBroadcastCoalesced() { BroadcastQueueDropped.Inc() }

func IncBroadcastSendError() {
	BroadcastSendErrors.Inc()
	atomic.AddUint64(&localBroadcastErrors, 1)
}

func IncDiscoveryAdvertisement() { DiscoveryAdvertisements.Inc() }

func SetDiscoveryHostsFound(n int) { DiscoveryHostsFound.Set(float64(n)) }

func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	atomic.AddUint64(&localErrors, 1)
}

// InitBuildInfo sets the build info gauge and pre-registers error label series.
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	for _, lbl := range []string{
		ErrListen, ErrAccept, ErrHandshake, ErrConnRead, ErrConnWrite,
		ErrFastRead, ErrFastWrite, ErrDiscovery, ErrContext,
	} {
		Errors.WithLabelValues(lbl).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil {
		return true
	}
	return fn()
}

// Ready is a concise alias used at call sites.
func Ready() bool { return IsReady() }
