package isoboard

import (
	"testing"
	"time"
)

func newTestPipeline() *EventPipeline {
	return NewEventPipeline(EventConfig{})
}

func TestPublishDeliversHighPriorityImmediately(t *testing.T) {
	p := newTestPipeline()
	var got []Event
	p.Subscribe(EventTilePlaced, func(ev Event) { got = append(got, ev) })

	for i := 0; i < 10; i++ {
		p.Publish(EventTilePlaced, TileEvent{Cell: Cell{Col: i}})
	}
	// High priority never throttles, dedups, or queues.
	if len(got) != 10 {
		t.Fatalf("delivered %d, want 10", len(got))
	}
	if p.QueueLen() != 0 {
		t.Errorf("QueueLen = %d, want 0", p.QueueLen())
	}
}

func TestThrottleLeadingAndTrailing(t *testing.T) {
	// A burst of N emissions inside one throttle window delivers the
	// first immediately and the latest at window expiry, nothing else.
	p := newTestPipeline()
	var got []Event
	p.Subscribe(EventTileHoverStart, func(ev Event) { got = append(got, ev) })

	for i := 0; i < 20; i++ {
		p.Publish(EventTileHoverStart, TileEvent{Cell: Cell{Col: i}})
	}
	if len(got) != 1 {
		t.Fatalf("leading edge delivered %d, want 1", len(got))
	}
	if got[0].Payload.(TileEvent).Cell.Col != 0 {
		t.Errorf("leading payload = %v, want the first emission", got[0].Payload)
	}
	if p.QueueLen() != 1 {
		t.Errorf("QueueLen = %d, want 1 coalesced pending", p.QueueLen())
	}

	// Advance past the 100ms hover throttle: the trailing edge flushes
	// with the latest payload.
	p.Update(DefaultHoverThrottle.Seconds() + 0.001)
	if len(got) != 2 {
		t.Fatalf("after window delivered %d, want 2", len(got))
	}
	if got[1].Payload.(TileEvent).Cell.Col != 19 {
		t.Errorf("trailing payload = %v, want the latest emission", got[1].Payload)
	}
}

func TestThrottleRespectsInterval(t *testing.T) {
	// Emissions spread over time deliver at most once per interval.
	p := newTestPipeline()
	count := 0
	p.Subscribe(EventCameraMove, func(Event) { count++ })

	interval := DefaultCameraThrottle.Seconds()
	step := interval / 5
	for i := 0; i < 50; i++ {
		p.Publish(EventCameraMove, CameraEvent{GridCol: float64(i) * 10})
		p.Update(step)
	}
	// 50 emissions over 10 windows: one delivery per window plus the
	// leading edge, within rounding of window alignment.
	if count < 9 || count > 12 {
		t.Errorf("deliveries = %d, want about one per window", count)
	}
}

func TestDedupSuppressesSmallDeltas(t *testing.T) {
	p := newTestPipeline()
	count := 0
	p.Subscribe(EventCameraMove, func(Event) { count++ })

	p.Publish(EventCameraMove, CameraEvent{GridCol: 0, GridRow: 0})
	if count != 1 {
		t.Fatalf("first emission delivered %d times", count)
	}
	// Sub-cell movement inside the dedup window is suppressed before it
	// ever reaches the throttle.
	p.Publish(EventCameraMove, CameraEvent{GridCol: 0.2, GridRow: 0})
	p.Publish(EventCameraMove, CameraEvent{GridCol: 0.4, GridRow: 0.3})
	if p.QueueLen() != 0 {
		t.Errorf("near-duplicates queued: QueueLen = %d", p.QueueLen())
	}
	p.Update(1)
	if count != 1 {
		t.Errorf("deliveries = %d, want 1 (duplicates suppressed)", count)
	}

	// A full-cell jump is not a duplicate.
	p.Publish(EventCameraMove, CameraEvent{GridCol: 5, GridRow: 5})
	if count != 2 {
		t.Errorf("deliveries = %d, want 2 after a real move", count)
	}
}

func TestDedupWindowExpires(t *testing.T) {
	p := newTestPipeline()
	count := 0
	p.Subscribe(EventCameraMove, func(Event) { count++ })

	p.Publish(EventCameraMove, CameraEvent{GridCol: 0})
	p.Update(DefaultDedupWindow.Seconds() + 0.01)
	// Outside the window even a zero-delta emission goes through.
	p.Publish(EventCameraMove, CameraEvent{GridCol: 0})
	if count != 2 {
		t.Errorf("deliveries = %d, want 2 after window expiry", count)
	}
}

func TestBatchFlushOnWindow(t *testing.T) {
	p := newTestPipeline()
	var flushes [][]Event
	p.SubscribeBatch(EventTileProximity, func(evs []Event) {
		flushes = append(flushes, evs)
	})

	for i := 0; i < 5; i++ {
		p.Publish(EventTileProximity, ProximityEvent{Cell: Cell{Col: i}})
	}
	if len(flushes) != 0 {
		t.Fatal("batch flushed before its window")
	}
	if p.QueueLen() != 5 {
		t.Errorf("QueueLen = %d, want 5", p.QueueLen())
	}

	p.Update(DefaultBatchWindow.Seconds() + 0.001)
	if len(flushes) != 1 || len(flushes[0]) != 5 {
		t.Fatalf("flushes = %d, want one flush of 5", len(flushes))
	}
	if p.QueueLen() != 0 {
		t.Errorf("QueueLen = %d after flush, want 0", p.QueueLen())
	}
}

func TestBatchFlushAtSizeCap(t *testing.T) {
	cfg := EventConfig{MaxBatch: 4}
	p := NewEventPipeline(cfg)
	var flushes [][]Event
	p.SubscribeBatch(EventTileProximity, func(evs []Event) {
		flushes = append(flushes, evs)
	})

	for i := 0; i < 9; i++ {
		p.Publish(EventTileProximity, ProximityEvent{Cell: Cell{Col: i}})
	}
	// Cap 4: two forced flushes, one event still queued.
	if len(flushes) != 2 {
		t.Fatalf("flushes = %d, want 2", len(flushes))
	}
	if len(flushes[0]) != 4 || len(flushes[1]) != 4 {
		t.Errorf("flush sizes = %d, %d, want 4, 4", len(flushes[0]), len(flushes[1]))
	}
	if p.QueueLen() != 1 {
		t.Errorf("QueueLen = %d, want 1", p.QueueLen())
	}
}

func TestBatchDeliversToPlainHandlersPerEvent(t *testing.T) {
	p := newTestPipeline()
	var single []Event
	p.Subscribe(EventTileProximity, func(ev Event) { single = append(single, ev) })

	p.Publish(EventTileProximity, ProximityEvent{Cell: Cell{Col: 1}})
	p.Publish(EventTileProximity, ProximityEvent{Cell: Cell{Col: 2}})
	p.Update(DefaultBatchWindow.Seconds() + 0.001)

	if len(single) != 2 {
		t.Errorf("plain handler got %d events, want 2 at flush", len(single))
	}
}

func TestQueueOverflowDropsOldestLowPriority(t *testing.T) {
	cfg := EventConfig{MaxQueue: 3, BatchWindow: time.Hour, MaxBatch: 1000}
	p := NewEventPipeline(cfg)
	var warnings []PerfWarning
	p.Subscribe(EventPerformanceWarning, func(ev Event) {
		warnings = append(warnings, ev.Payload.(PerfWarning))
	})

	// Fill the queue with low-priority hover pendings and proximity
	// batch entries, then overflow it.
	p.Publish(EventTileHoverStart, TileEvent{Cell: Cell{Col: 0}}) // leading, delivered
	p.Publish(EventTileHoverStart, TileEvent{Cell: Cell{Col: 1}}) // pending (1)
	p.Publish(EventTileProximity, ProximityEvent{Cell: Cell{Col: 2}})
	p.Publish(EventTileProximity, ProximityEvent{Cell: Cell{Col: 3}})
	if p.QueueLen() != 3 {
		t.Fatalf("QueueLen = %d, want 3", p.QueueLen())
	}

	p.Publish(EventTileProximity, ProximityEvent{Cell: Cell{Col: 4}})
	if p.QueueLen() != 3 {
		t.Errorf("QueueLen = %d after overflow, want 3", p.QueueLen())
	}
	if p.Dropped() != 1 {
		t.Errorf("Dropped = %d, want 1", p.Dropped())
	}
	if len(warnings) != 1 || warnings[0].Reason == "" {
		t.Fatalf("warnings = %v, want one overflow warning", warnings)
	}
}

func TestQueueOverflowEvictsGloballyOldest(t *testing.T) {
	// Eviction picks the oldest queued low-priority event across every
	// category, not the first low-priority category in enum order.
	cfg := EventConfig{
		MaxQueue:    2,
		BatchWindow: time.Hour,
		MaxBatch:    1000,
		Categories: map[EventCategory]CategoryConfig{
			EventCameraMove:     {Priority: PriorityLow, Batchable: true},
			EventTileHoverStart: {Priority: PriorityLow, Batchable: true},
		},
	}
	p := NewEventPipeline(cfg)
	var camBatch, hoverBatch []Event
	p.SubscribeBatch(EventCameraMove, func(evs []Event) { camBatch = append(camBatch, evs...) })
	p.SubscribeBatch(EventTileHoverStart, func(evs []Event) { hoverBatch = append(hoverBatch, evs...) })

	// The camera event is queued first and so is globally oldest, though
	// its category enumerates after hover.
	p.Publish(EventCameraMove, CameraEvent{GridCol: 1})
	p.Update(0.01)
	p.Publish(EventTileHoverStart, TileEvent{Cell: Cell{Col: 1}})
	p.Update(0.01)
	p.Publish(EventTileHoverStart, TileEvent{Cell: Cell{Col: 2}}) // overflow

	if p.Dropped() != 1 {
		t.Fatalf("Dropped = %d, want 1", p.Dropped())
	}
	p.Update(3601) // expire both batch windows
	if len(camBatch) != 0 {
		t.Errorf("camera events = %d, want 0 (oldest evicted)", len(camBatch))
	}
	if len(hoverBatch) != 2 {
		t.Errorf("hover events = %d, want both kept", len(hoverBatch))
	}
}

func TestSubscriptionRemove(t *testing.T) {
	p := newTestPipeline()
	count := 0
	sub := p.Subscribe(EventTilePlaced, func(Event) { count++ })

	p.Publish(EventTilePlaced, TileEvent{})
	sub.Remove()
	p.Publish(EventTilePlaced, TileEvent{})
	if count != 1 {
		t.Errorf("deliveries = %d, want 1 after Remove", count)
	}
}

func TestSubscribeAllAggregates(t *testing.T) {
	p := newTestPipeline()
	var cats []EventCategory
	sub := p.SubscribeAll(DragCategories, func(ev Event) {
		cats = append(cats, ev.Category)
	})

	p.Publish(EventDragStart, DragEvent{})
	p.Publish(EventDragEnd, DragEvent{})
	p.Publish(EventTilePlaced, TileEvent{}) // not a drag category
	if len(cats) != 2 || cats[0] != EventDragStart || cats[1] != EventDragEnd {
		t.Fatalf("received %v, want drag start and end only", cats)
	}

	sub.Remove()
	p.Publish(EventDragStart, DragEvent{})
	if len(cats) != 2 {
		t.Error("aggregator still firing after Remove")
	}
}

func TestAllCategoriesCoversEverything(t *testing.T) {
	cats := AllCategories()
	if len(cats) != int(numEventCategories) {
		t.Fatalf("AllCategories = %d entries, want %d", len(cats), numEventCategories)
	}
	for _, c := range cats {
		if c.String() == "unknown" {
			t.Errorf("category %d has no wire name", c)
		}
	}
}

func TestCategoryStrings(t *testing.T) {
	tests := []struct {
		cat  EventCategory
		want string
	}{
		{EventTilePlaced, "tile-placed"},
		{EventDragMove, "drag-move"},
		{EventTileProximity, "tile-proximity-detected"},
		{EventValidationRequest, "position-validation-request"},
		{EventPerformanceWarning, "performance-warning"},
		{numEventCategories, "unknown"},
	}
	for _, tt := range tests {
		if got := tt.cat.String(); got != tt.want {
			t.Errorf("String(%d) = %q, want %q", tt.cat, got, tt.want)
		}
	}
}

func TestCloseCancelsScheduledWork(t *testing.T) {
	p := newTestPipeline()
	count := 0
	p.Subscribe(EventTileHoverStart, func(Event) { count++ })
	p.Subscribe(EventTileProximity, func(Event) { count++ })

	p.Publish(EventTileHoverStart, TileEvent{}) // leading, delivered
	p.Publish(EventTileHoverStart, TileEvent{}) // pending
	p.Publish(EventTileProximity, ProximityEvent{})

	p.Close()
	p.Update(10)
	if count != 1 {
		t.Errorf("deliveries = %d, want only the pre-Close leading edge", count)
	}
	if p.QueueLen() != 0 {
		t.Errorf("QueueLen = %d after Close, want 0", p.QueueLen())
	}

	// Publish after Close is ignored.
	p.Publish(EventTilePlaced, TileEvent{})
	if count != 1 {
		t.Error("pipeline delivered after Close")
	}
}

func TestCategoryOverride(t *testing.T) {
	cfg := EventConfig{
		Categories: map[EventCategory]CategoryConfig{
			EventTileHoverStart: {Priority: PriorityHigh},
		},
	}
	p := NewEventPipeline(cfg)
	count := 0
	p.Subscribe(EventTileHoverStart, func(Event) { count++ })
	for i := 0; i < 5; i++ {
		p.Publish(EventTileHoverStart, TileEvent{})
	}
	if count != 5 {
		t.Errorf("overridden category delivered %d, want 5 (no throttle)", count)
	}
}

func TestDragEventDelta(t *testing.T) {
	a := DragEvent{Cell: Cell{Col: 0, Row: 0}}
	b := DragEvent{Cell: Cell{Col: 3, Row: 4}}
	if d := b.DeltaFrom(a); !approxEqual(d, 5, epsilon) {
		t.Errorf("DeltaFrom = %f, want 5", d)
	}
	if d := b.DeltaFrom("not a drag event"); d >= 0 {
		t.Errorf("foreign payload delta = %f, want negative", d)
	}
}

func BenchmarkPublishThrottled(b *testing.B) {
	p := newTestPipeline()
	p.Subscribe(EventCameraMove, func(Event) {})
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		p.Publish(EventCameraMove, CameraEvent{GridCol: float64(i)})
	}
}
