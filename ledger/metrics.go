package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "easychore_ledger"

// Collector is a prometheus.Collector for ledger operations. A nil
// *Collector records nothing.
type Collector struct {
	expensesCreated     *prometheus.CounterVec
	settlements         *prometheus.CounterVec
	expensesDeleted     prometheus.Counter
	authorizationDenied *prometheus.CounterVec
}

func NewCollector() *Collector {
	return &Collector{
		expensesCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "expenses_created_total",
				Help:      "The number of expenses recorded.",
			}, []string{"split_type"},
		),
		settlements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "settlements_total",
				Help:      "The number of debtor shares marked paid.",
			}, []string{"actor", "method"},
		),
		expensesDeleted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "expenses_deleted_total",
				Help:      "The number of expenses deleted.",
			},
		),
		authorizationDenied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "authorization_denied_total",
				Help:      "The number of ledger operations refused for the requester.",
			}, []string{"operation"},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.expensesCreated.Describe(ch)
	c.settlements.Describe(ch)
	c.expensesDeleted.Describe(ch)
	c.authorizationDenied.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.expensesCreated.Collect(ch)
	c.settlements.Collect(ch)
	c.expensesDeleted.Collect(ch)
	c.authorizationDenied.Collect(ch)
}

func (c *Collector) expenseCreated(splitType SplitType) {
	if c == nil {
		return
	}
	c.expensesCreated.WithLabelValues(string(splitType)).Inc()
}

func (c *Collector) debtSettled(actor string, method PaidMethod) {
	if c == nil {
		return
	}
	c.settlements.WithLabelValues(actor, string(method)).Inc()
}

func (c *Collector) expenseDeleted() {
	if c == nil {
		return
	}
	c.expensesDeleted.Inc()
}

func (c *Collector) denied(operation string) {
	if c == nil {
		return
	}
	c.authorizationDenied.WithLabelValues(operation).Inc()
}
