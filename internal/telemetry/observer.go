package telemetry

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/tinoosan/xfer/internal/metrics"
	"github.com/tinoosan/xfer/internal/transfer"
)

// Kind labels which coordinator a batch's telemetry came from.
type Kind string

const (
	KindDownload Kind = "download"
	KindUpload   Kind = "upload"
)

// UnitEnvelope tags one unit event with the batch and record it belongs
// to, for a forwarding consumer that wants the raw stream without
// re-deriving the aggregate/unit relationship.
type UnitEnvelope struct {
	BatchID string
	Index   int
	Event   transfer.UnitEvent
}

// AggregateEnvelope tags one aggregate-level event with its batch.
type AggregateEnvelope struct {
	BatchID string
	Event   transfer.AggregateEvent
}

// Observer drains one coordinator's aggregate event stream end to end,
// including every unit stream it yields, updating Prometheus metrics and
// structured logs as it goes. It never writes to a Record; state
// ownership stays exclusively with the coordinator (spec.md §5's
// single-writer rule). An events-channel consumer with a handle switch,
// generalized from one flat event channel to the two-level stream.
//
// Because spec.md models each stream as single-producer/single-consumer,
// Observer is meant to be the application's sole reader of a
// coordinator's output. Components that still need the raw events, such
// as a websocket broadcaster, read UnitFeed/AggregateFeed instead of the
// coordinator's own streams.
type Observer struct {
	kind Kind
	log  *slog.Logger

	unitFeed chan UnitEnvelope
	aggFeed  chan AggregateEnvelope
}

// New builds an Observer for one coordinator kind. feedBuffer sizes the
// forwarding channels UnitFeed/AggregateFeed expose.
func New(kind Kind, log *slog.Logger, feedBuffer int) *Observer {
	if log == nil {
		log = slog.Default()
	}
	return &Observer{
		kind:     kind,
		log:      log,
		unitFeed: make(chan UnitEnvelope, feedBuffer),
		aggFeed:  make(chan AggregateEnvelope, feedBuffer),
	}
}

// UnitFeed returns the channel every unit event is forwarded to, in
// addition to being tallied into metrics. Closed once Consume returns.
func (o *Observer) UnitFeed() <-chan UnitEnvelope { return o.unitFeed }

// AggregateFeed returns the channel every aggregate event is forwarded
// to. Closed once Consume returns.
func (o *Observer) AggregateFeed() <-chan AggregateEnvelope { return o.aggFeed }

// Consume drains agg and every unit stream it yields until the batch
// terminates, then closes UnitFeed/AggregateFeed. Call it on its own
// goroutine.
func (o *Observer) Consume(agg *transfer.AggregateEventStream) {
	batchID := uuid.NewString()
	log := o.log.With("batch_id", batchID, "kind", string(o.kind))

	var wg sync.WaitGroup
	for e := range agg.Events() {
		select {
		case o.aggFeed <- AggregateEnvelope{BatchID: batchID, Event: e}:
		default:
			// No subscriber draining AggregateFeed; drop rather than block
			// and stall the coordinator behind us.
		}
		switch ev := e.(type) {
		case transfer.AggregateStart:
			log.Info("batch started", "records", len(ev.Records))
		case transfer.AggregateUnit:
			wg.Add(1)
			go func(idx int, s *transfer.UnitEventStream) {
				defer wg.Done()
				o.consumeUnit(log, batchID, idx, s)
			}(ev.Index, ev.Stream)
		case transfer.AggregateAllCompleted:
			log.Info("batch completed", "records", len(ev.Records))
		}
	}
	if err := agg.Err(); err != nil {
		log.Warn("aggregate stream finished with error", "err", err)
	}
	wg.Wait()
	close(o.unitFeed)
	close(o.aggFeed)
}

func (o *Observer) consumeUnit(log *slog.Logger, batchID string, index int, s *transfer.UnitEventStream) {
	for e := range s.Events() {
		select {
		case o.unitFeed <- UnitEnvelope{BatchID: batchID, Index: index, Event: e}:
		default:
			// No subscriber draining UnitFeed; drop rather than block this
			// unit stream's reader, which would back up into the coordinator.
		}
		metrics.UnitEvents.WithLabelValues(string(o.kind), unitEventType(e)).Inc()
		switch e.(type) {
		case transfer.UnitStart:
			log.Info("unit started", "index", index)
		case transfer.UnitCompleted:
			metrics.TransferOutcomes.WithLabelValues(string(o.kind), "completed").Inc()
			log.Info("unit completed", "index", index)
		}
	}
	if err := s.Err(); err != nil {
		metrics.TransferOutcomes.WithLabelValues(string(o.kind), "failed").Inc()
		log.Warn("unit stream finished with error", "index", index, "err", err)
	}
}

func unitEventType(e transfer.UnitEvent) string {
	switch e.(type) {
	case transfer.UnitStart:
		return "start"
	case transfer.UnitUpdate:
		return "update"
	case transfer.UnitCompleted:
		return "completed"
	default:
		return "unknown"
	}
}
