package main

import (
	"github.com/prometheus/client_golang/prometheus"
)

type drawMetrics struct {
	draws      prometheus.Counter
	winners    prometheus.Counter
	redraws    prometheus.Counter
	rejections *prometheus.CounterVec
	rooms      prometheus.Gauge
}

func newDrawMetrics(reg prometheus.Registerer) *drawMetrics {
	m := &drawMetrics{
		draws: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dicedraw",
			Name:      "draws_total",
			Help:      "Total number of shuffles and reshuffles that drew winners",
		}),
		winners: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dicedraw",
			Name:      "winners_total",
			Help:      "Total number of winners drawn, including redraws",
		}),
		redraws: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dicedraw",
			Name:      "redraws_total",
			Help:      "Total number of single winners replaced by a redraw",
		}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dicedraw",
			Name:      "rejections_total",
			Help:      "Total number of rejected draw requests by alert code",
		}, []string{"code"}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dicedraw",
			Name:      "sessions",
			Help:      "Number of live draw sessions",
		}),
	}

	reg.MustRegister(m.draws, m.winners, m.redraws, m.rejections, m.rooms)

	return m
}
