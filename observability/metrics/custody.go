package metrics

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	nativecommon "custodychain/native/common"
)

const (
	OutcomeSuccess   = "success"
	OutcomeRejected  = "rejected"
	OutcomeInvariant = "invariant"
)

type CustodyMetrics struct {
	operations   *prometheus.CounterVec
	transactions *prometheus.CounterVec
}

var (
	custodyOnce     sync.Once
	custodyRegistry *CustodyMetrics
)

// Custody returns the process-wide custody metrics registered with the default
// Prometheus registerer.
func Custody() *CustodyMetrics {
	custodyOnce.Do(func() {
		custodyRegistry = NewCustodyMetrics(prometheus.DefaultRegisterer)
	})
	return custodyRegistry
}

// NewCustodyMetrics builds the custody collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewCustodyMetrics(reg prometheus.Registerer) *CustodyMetrics {
	m := &CustodyMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_operations_total",
			Help: "Custody engine operations by name and outcome.",
		}, []string{"operation", "outcome"}),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_transactions_total",
			Help: "Transactions applied by the state processor by type and outcome.",
		}, []string{"type", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.operations, m.transactions)
	}
	return m
}

// Outcome classifies err for labelling.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, nativecommon.ErrInvariant):
		return OutcomeInvariant
	default:
		return OutcomeRejected
	}
}

// Observe records one engine operation. It satisfies the engine's recorder.
func (m *CustodyMetrics) Observe(operation string, err error) {
	if m == nil {
		return
	}
	if operation == "" {
		operation = "unknown"
	}
	m.operations.WithLabelValues(operation, Outcome(err)).Inc()
}

// ObserveTransaction records one processed transaction.
func (m *CustodyMetrics) ObserveTransaction(txType string, err error) {
	if m == nil {
		return
	}
	if txType == "" {
		txType = "unknown"
	}
	m.transactions.WithLabelValues(txType, Outcome(err)).Inc()
}
