package core

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"custodychain/core/types"
)

func TestProduceBlockRecordsSpans(t *testing.T) {
	trustor := newTestAccount(t)
	node := openTestNode(t, testConfig(t))
	defer node.Close()

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	defer func() { _ = tp.Shutdown(context.Background()) }()
	node.tracer = tp.Tracer("test")

	if _, err := node.ProduceBlockContext(context.Background(), []*types.Transaction{
		trustor.tx(t, types.TxTypeCustodyPing, 0, nil),
	}); err != nil {
		t.Fatalf("produce block: %v", err)
	}

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	tx, block := spans[0], spans[1]
	if tx.Name() != "custody.apply_tx" || tx.Status().Code != codes.Error {
		t.Fatalf("unexpected tx span %q status %v", tx.Name(), tx.Status().Code)
	}
	if block.Name() != "custody.produce_block" || block.Status().Code != codes.Ok {
		t.Fatalf("unexpected block span %q status %v", block.Name(), block.Status().Code)
	}
	if tx.Parent().SpanID() != block.SpanContext().SpanID() {
		t.Fatalf("tx span is not a child of the block span")
	}
}
