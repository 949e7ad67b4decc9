// Package metrics exports the queue and server activity as Prometheus
// metrics.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sarchlab/chainsim/sim/hooking"
	"github.com/sarchlab/chainsim/sim/queueing"
	"github.com/sarchlab/chainsim/sim/simulation"
)

// Collector is a hook that turns queue and server events into metrics. It
// owns its registry, so several collectors can live in one process.
type Collector struct {
	registry *prometheus.Registry

	lock  sync.Mutex
	peaks map[string]int

	ProcessesInserted *prometheus.CounterVec
	ProcessesServiced *prometheus.CounterVec
	ChainsCreated     *prometheus.CounterVec
	ChainsExtracted   *prometheus.CounterVec
	Chains            *prometheus.GaugeVec
	PeakChains        *prometheus.GaugeVec
	ChainLength       *prometheus.HistogramVec
	ServiceDuration   *prometheus.HistogramVec
}

// NewCollector creates a collector and registers its metrics on a fresh
// registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		peaks:    make(map[string]int),

		ProcessesInserted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainsim_processes_inserted_total",
				Help: "Total number of processes inserted into the queue",
			},
			[]string{"queue"},
		),
		ProcessesServiced: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainsim_processes_serviced_total",
				Help: "Total number of processes serviced",
			},
			[]string{"server"},
		),
		ChainsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainsim_chains_created_total",
				Help: "Total number of chains appended to the queue",
			},
			[]string{"queue"},
		),
		ChainsExtracted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainsim_chains_extracted_total",
				Help: "Total number of chains taken out of the queue",
			},
			[]string{"queue"},
		),
		Chains: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "chainsim_chains",
				Help: "Current number of chains in the queue",
			},
			[]string{"queue"},
		),
		PeakChains: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "chainsim_chains_peak",
				Help: "Largest number of chains seen after an insertion",
			},
			[]string{"queue"},
		),
		ChainLength: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chainsim_extracted_chain_length",
				Help:    "Number of processes in each extracted chain",
				Buckets: prometheus.LinearBuckets(1, 1, 8),
			},
			[]string{"queue"},
		),
		ServiceDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chainsim_service_duration_units",
				Help:    "Service time of each process in time units",
				Buckets: prometheus.LinearBuckets(1, 1, 10),
			},
			[]string{"server"},
		),
	}
}

// Registry returns the registry that holds the metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Func updates the metrics.
func (c *Collector) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case queueing.HookPosProcessInsert:
		c.processInserted(ctx)
	case queueing.HookPosChainGrow:
		c.chainGrown(ctx)
	case queueing.HookPosChainShrink:
		c.chainShrunk(ctx)
	case simulation.HookPosServiceEnd:
		c.serviced(ctx)
	}
}

func (c *Collector) processInserted(ctx hooking.HookCtx) {
	name := ctx.Domain.(hooking.Named).Name()
	c.ProcessesInserted.WithLabelValues(name).Inc()
}

func (c *Collector) chainGrown(ctx hooking.HookCtx) {
	name := ctx.Domain.(hooking.Named).Name()
	count := ctx.Detail.(int)

	c.ChainsCreated.WithLabelValues(name).Inc()
	c.Chains.WithLabelValues(name).Set(float64(count))

	c.lock.Lock()
	defer c.lock.Unlock()

	if count > c.peaks[name] {
		c.peaks[name] = count
		c.PeakChains.WithLabelValues(name).Set(float64(count))
	}
}

func (c *Collector) chainShrunk(ctx hooking.HookCtx) {
	name := ctx.Domain.(hooking.Named).Name()
	chain := ctx.Item.(*queueing.Chain)

	c.ChainsExtracted.WithLabelValues(name).Inc()
	c.Chains.WithLabelValues(name).Set(float64(ctx.Detail.(int)))
	c.ChainLength.WithLabelValues(name).Observe(float64(chain.Len()))
}

func (c *Collector) serviced(ctx hooking.HookCtx) {
	name := ctx.Domain.(hooking.Named).Name()
	p := ctx.Item.(queueing.Process)

	c.ProcessesServiced.WithLabelValues(name).Inc()
	c.ServiceDuration.WithLabelValues(name).
		Observe(float64(p.ServiceDuration()))
}
