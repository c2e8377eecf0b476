package services

import "github.com/prometheus/client_golang/prometheus"

// productMutations counts successful catalog writes by operation
// (create|update|delete).
var productMutations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "catalog_product_mutations_total",
		Help: "Total number of successful product mutations.",
	},
	[]string{"op"},
)

func init() {
	prometheus.MustRegister(productMutations)
}
