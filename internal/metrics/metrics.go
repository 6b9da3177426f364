// Package metrics exports lockstep link counters to Prometheus.
//
// A nil *Recorder is valid and records nothing, so packages that take one
// can run without a registry.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/1ureka/lockstep/internal/netcmd"
)

// Config configures the recorder.
type Config struct {
	// Namespace is the metrics namespace (default: "lockstep").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are added to every metric, e.g. the local player id.
	ConstLabels prometheus.Labels

	// Registry is where the metrics are registered.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the recorder.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "lockstep",
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Encoding classes reported by CommandEncoded.
const (
	EncodingSmall  = "small"
	EncodingRepeat = "repeat"
	EncodingChunk  = "chunked"
)

// Recorder holds the Prometheus collectors for one link.
type Recorder struct {
	packets      *prometheus.CounterVec
	packetBytes  *prometheus.HistogramVec
	commands     *prometheus.CounterVec
	decodeErrors *prometheus.CounterVec
	chunks       prometheus.Counter
	reassembled  prometheus.Counter
	pending      prometheus.Gauge
}

// New registers the link metrics and returns their recorder.
//
// Metrics collected:
//   - lockstep_packets_total: packets by direction
//   - lockstep_packet_bytes: packet size histogram by direction
//   - lockstep_commands_total: commands by kind and encoding class
//   - lockstep_decode_errors_total: rejected packets by error code
//   - lockstep_chunks_total: wrapper chunks produced by the splitter
//   - lockstep_reassembled_total: chunk series completed by the receiver
//   - lockstep_reassembly_pending: chunk series still incomplete
func New(opts ...Option) *Recorder {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Recorder{
		packets: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "packets_total",
			Help:        "Total number of lockstep packets by direction",
			ConstLabels: config.ConstLabels,
		}, []string{"direction"}),

		packetBytes: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "packet_bytes",
			Help:        "Encoded packet size in bytes",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{16, 32, 64, 128, 256, 476, 1024},
		}, []string{"direction"}),

		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "commands_total",
			Help:        "Total number of commands by kind and encoding",
			ConstLabels: config.ConstLabels,
		}, []string{"kind", "encoding"}),

		decodeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "decode_errors_total",
			Help:        "Total number of rejected packets by error code",
			ConstLabels: config.ConstLabels,
		}, []string{"code"}),

		chunks: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "chunks_total",
			Help:        "Total number of wrapper chunks produced",
			ConstLabels: config.ConstLabels,
		}),

		reassembled: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reassembled_total",
			Help:        "Total number of chunk series reassembled",
			ConstLabels: config.ConstLabels,
		}),

		pending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reassembly_pending",
			Help:        "Number of incomplete chunk series held by the receiver",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Directions used as the "direction" label.
const (
	Sent     = "sent"
	Received = "received"
)

// Packet records one packet of n bytes in the given direction.
func (r *Recorder) Packet(direction string, n int) {
	if r == nil {
		return
	}
	r.packets.WithLabelValues(direction).Inc()
	r.packetBytes.WithLabelValues(direction).Observe(float64(n))
}

// CommandEncoded records one command written with the given encoding class.
func (r *Recorder) CommandEncoded(k netcmd.Kind, encoding string) {
	if r == nil {
		return
	}
	r.commands.WithLabelValues(k.String(), encoding).Inc()
}

// DecodeError records a rejected packet, labelled by its protocol error code.
func (r *Recorder) DecodeError(err error) {
	if r == nil || err == nil {
		return
	}
	code := "other"
	var pe *netcmd.ProtocolError
	if errors.As(err, &pe) {
		code = pe.Code.String()
	}
	r.decodeErrors.WithLabelValues(code).Inc()
}

// Chunks records n wrapper chunks produced for one oversized command.
func (r *Recorder) Chunks(n int) {
	if r == nil {
		return
	}
	r.chunks.Add(float64(n))
}

// Reassembled records a completed chunk series.
func (r *Recorder) Reassembled() {
	if r == nil {
		return
	}
	r.reassembled.Inc()
}

// Pending sets the number of incomplete chunk series.
func (r *Recorder) Pending(n int) {
	if r == nil {
		return
	}
	r.pending.Set(float64(n))
}
