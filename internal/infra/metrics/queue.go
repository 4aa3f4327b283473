package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(queueDepth) }

var queueDepth = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "chat_queue_depth",
		Help: "Pending chat job ids waiting in the queue.",
	},
	[]string{"backend"},
)

func SetQueueDepth(backend string, n int64) {
	queueDepth.WithLabelValues(norm(backend)).Set(float64(n))
}
