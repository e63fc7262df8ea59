package metrics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	nativecommon "custodychain/native/common"
)

func TestCustodyMetricsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCustodyMetrics(reg)

	m.Observe("create", nil)
	m.Observe("create", nil)
	m.Observe("create", errors.New("custody: trustor already has a contract"))
	m.Observe("delete", fmt.Errorf("wrapped: %w", nativecommon.ErrInvariant))
	m.ObserveTransaction("custody.ping", nil)

	if got := testutil.ToFloat64(m.operations.WithLabelValues("create", OutcomeSuccess)); got != 2 {
		t.Fatalf("expected 2 successful creates, got %v", got)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("create", OutcomeRejected)); got != 1 {
		t.Fatalf("expected 1 rejected create, got %v", got)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("delete", OutcomeInvariant)); got != 1 {
		t.Fatalf("expected 1 invariant failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.transactions.WithLabelValues("custody.ping", OutcomeSuccess)); got != 1 {
		t.Fatalf("expected 1 ping transaction, got %v", got)
	}
}

func TestNilCustodyMetricsIsSafe(t *testing.T) {
	var m *CustodyMetrics
	m.Observe("create", nil)
	m.ObserveTransaction("transfer", nil)
}
