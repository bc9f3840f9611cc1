// Package metrics 业务指标；HTTP 指标见 middleware.Metrics
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "taskhub"

var UsersRegisteredTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "users_registered_total",
	Help:      "Total number of registered users.",
})

// LoginsTotal result: ok / invalid
var LoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "logins_total",
	Help:      "Login attempts by result.",
}, []string{"result"})

// CategoryOpsTotal op: create / update / delete
var CategoryOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "category_ops_total",
	Help:      "Successful category mutations by operation.",
}, []string{"op"})

// TaskOpsTotal op: create / update / delete
var TaskOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "task_ops_total",
	Help:      "Successful task mutations by operation.",
}, []string{"op"})
