package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	StreamClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fuelphases",
			Subsystem: "stream",
			Name:      "clients",
			Help:      "Connected market phase stream clients",
		},
	)

	StreamMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fuelphases",
			Subsystem: "stream",
			Name:      "messages_total",
			Help:      "Stream messages by fuel and result (sent, dropped)",
		},
		[]string{"fuel", "result"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(StreamClients, StreamMessages)
	})
}
