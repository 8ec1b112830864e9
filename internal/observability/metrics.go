package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TCPConnections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codec_tcp_connections_total",
		Help: "TCP connections accepted",
	})
	HandshakeOK = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codec_handshake_ok_total",
		Help: "IMEI handshakes accepted",
	})
	HandshakeRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codec_handshake_rejected_total",
		Help: "Handshakes that did not carry a valid IMEI",
	})
	FramesRecv = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codec_frames_received_total",
		Help: "Frames received by codec id",
	}, []string{"codec"})
	RecordsAck = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codec_records_ack_total",
		Help: "AVL records acknowledged to the device",
	})
	DecodeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codec_decode_errors_total",
		Help: "Frame decode failures by kind",
	}, []string{"kind"})
	CommandsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codec_commands_sent_total",
		Help: "Codec12 commands written to devices",
	}, []string{"cmd"})
	StoreErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codec_store_errors_total",
		Help: "Failed writes to the device state store",
	})
	ForwardErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codec_forward_errors_total",
		Help: "Tracking objects that could not be forwarded",
	})
	ParseLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "codec_parse_latency_seconds",
		Help:    "Decode latency per frame",
		Buckets: prometheus.DefBuckets,
	})
)

func ObserveParseLatency(start time.Time) {
	ParseLatency.Observe(time.Since(start).Seconds())
}

// MetricsHandler serves /metrics and /healthz.
func MetricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// StartMetricsServer serves MetricsHandler on port until ctx is done.
func StartMetricsServer(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           MetricsHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
