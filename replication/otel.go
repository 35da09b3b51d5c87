package replication

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/hxnet/hxnet/replication"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type metrics struct {
	sent            metric.Int64Counter
	received        metric.Int64Counter
	outOfOrder      metric.Int64Counter
	authorityFlips  metric.Int64Counter
	epochMismatches metric.Int64Counter
}

func newMetrics() (*metrics, error) {
	m := meter()
	var (
		out metrics
		err error
	)
	if out.sent, err = m.Int64Counter(
		"replication.frames.sent",
		metric.WithDescription("Frames sent, by event kind"),
	); err != nil {
		return nil, fmt.Errorf("creating sent counter: %w", err)
	}
	if out.received, err = m.Int64Counter(
		"replication.frames.received",
		metric.WithDescription("Frames received, by event kind"),
	); err != nil {
		return nil, fmt.Errorf("creating received counter: %w", err)
	}
	if out.outOfOrder, err = m.Int64Counter(
		"replication.frames.out_of_order",
		metric.WithDescription("Frames dropped because they were older than the newest buffered frame"),
	); err != nil {
		return nil, fmt.Errorf("creating out of order counter: %w", err)
	}
	if out.authorityFlips, err = m.Int64Counter(
		"replication.authority.changes",
		metric.WithDescription("Physics authority changes"),
	); err != nil {
		return nil, fmt.Errorf("creating authority counter: %w", err)
	}
	if out.epochMismatches, err = m.Int64Counter(
		"replication.authority.epoch_mismatches",
		metric.WithDescription("Frames generated under a different authority epoch than the receiver's"),
	); err != nil {
		return nil, fmt.Errorf("creating epoch counter: %w", err)
	}
	return &out, nil
}
