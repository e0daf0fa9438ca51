package isoboard

import "time"

// EventCategory identifies a kind of engine notification.
type EventCategory uint8

const (
	EventTilePlaced EventCategory = iota
	EventTileRemoved
	EventTileSelected
	EventTileDeselected
	EventTileHoverStart
	EventTileHoverEnd
	EventDragStart
	EventDragMove
	EventDragEnd
	EventTileProximity
	EventValidationRequest
	EventValidationResponse
	EventCameraMove
	EventCameraZoom
	EventCameraAnimStart
	EventCameraAnimUpdate
	EventCameraAnimEnd
	EventBoardInitialized
	EventBoardCleared
	EventBoardResized
	EventPerformanceUpdate
	EventPerformanceWarning
	EventError

	numEventCategories
)

var categoryNames = [numEventCategories]string{
	"tile-placed", "tile-removed", "tile-selected", "tile-deselected",
	"tile-hover-start", "tile-hover-end",
	"drag-start", "drag-move", "drag-end",
	"tile-proximity-detected",
	"position-validation-request", "position-validation-response",
	"camera-move", "camera-zoom",
	"camera-animation-start", "camera-animation-update", "camera-animation-end",
	"board-initialized", "board-cleared", "board-resized",
	"performance-update", "performance-warning",
	"error",
}

// String returns the category's wire name, e.g. "tile-placed".
func (c EventCategory) String() string {
	if c < numEventCategories {
		return categoryNames[c]
	}
	return "unknown"
}

// Aggregator category sets for SubscribeAll.
var (
	// DragCategories covers every drag-session event.
	DragCategories = []EventCategory{EventDragStart, EventDragMove, EventDragEnd}
	// CameraCategories covers movement, zoom, and animation events.
	CameraCategories = []EventCategory{
		EventCameraMove, EventCameraZoom,
		EventCameraAnimStart, EventCameraAnimUpdate, EventCameraAnimEnd,
	}
	// TileCategories covers occupancy and interaction events.
	TileCategories = []EventCategory{
		EventTilePlaced, EventTileRemoved, EventTileSelected, EventTileDeselected,
		EventTileHoverStart, EventTileHoverEnd, EventTileProximity,
	}
)

// AllCategories returns every category, for firehose subscriptions.
func AllCategories() []EventCategory {
	cats := make([]EventCategory, numEventCategories)
	for i := range cats {
		cats[i] = EventCategory(i)
	}
	return cats
}

// Priority classes a category for the optimization pipeline. High
// priority bypasses throttling and deduplication entirely; Low receives
// the most aggressive throttling and is the first dropped on overflow.
type Priority uint8

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

// Event is one notification flowing through the pipeline. Time is the
// pipeline clock in seconds at publish.
type Event struct {
	Category EventCategory
	Payload  any
	Time     float64
}

// DeltaComparable payloads opt into deduplication: two emissions whose
// Delta is below the category's threshold within the dedup window are
// suppressed as near-duplicates.
type DeltaComparable interface {
	// DeltaFrom returns the magnitude of change versus a previous
	// payload of the same type, in cell units. A negative return means
	// "not comparable" and disables dedup for the pair.
	DeltaFrom(prev any) float64
}

// Handler receives a single delivered event.
type Handler func(Event)

// BatchHandler receives the queued events of one batch flush.
type BatchHandler func([]Event)

// CategoryConfig tunes the pipeline for one event category.
type CategoryConfig struct {
	// Throttle is the minimum interval between deliveries. Events
	// arriving faster are coalesced to the latest payload and delivered
	// when the interval elapses (leading + trailing, never dropped).
	// Zero disables throttling.
	Throttle time.Duration
	// DedupWindow and DedupDelta suppress a delivery whose payload
	// changed by less than DedupDelta cells within DedupWindow of the
	// previous one.
	DedupWindow time.Duration
	DedupDelta  float64
	// Priority classifies the category; PriorityHigh bypasses the
	// throttle and dedup paths entirely.
	Priority Priority
	// Batchable queues emissions and flushes them together once per
	// batch window or when the batch size cap is hit.
	Batchable bool
}

// EventConfig configures the whole pipeline. Zero fields take the
// package defaults; Categories overrides the built-in per-category
// tuning.
type EventConfig struct {
	// MaxQueue bounds the total number of queued (pending + batched)
	// events. Exceeding it emits a performance warning and drops the
	// oldest queued low-priority event.
	MaxQueue int
	// BatchWindow is the flush interval for batchable categories.
	BatchWindow time.Duration
	// MaxBatch forces an immediate flush when a batch reaches this size.
	MaxBatch int
	// Categories overrides tuning per category.
	Categories map[EventCategory]CategoryConfig
}

// defaultCategoryConfig returns the built-in tuning for a category.
// Placement, removal, drag boundaries, and errors are high priority;
// hover, camera movement, and performance are low.
func defaultCategoryConfig(c EventCategory) CategoryConfig {
	switch c {
	case EventTilePlaced, EventTileRemoved, EventDragStart, EventDragEnd,
		EventError, EventBoardInitialized, EventBoardCleared, EventBoardResized,
		EventValidationRequest, EventValidationResponse:
		return CategoryConfig{Priority: PriorityHigh}
	case EventDragMove:
		return CategoryConfig{
			Throttle:    DefaultDragThrottle,
			DedupWindow: DefaultDedupWindow,
			DedupDelta:  DefaultDedupCellDelta,
			Priority:    PriorityMedium,
		}
	case EventCameraMove, EventCameraZoom, EventCameraAnimUpdate:
		return CategoryConfig{
			Throttle:    DefaultCameraThrottle,
			DedupWindow: DefaultDedupWindow,
			DedupDelta:  DefaultDedupCellDelta,
			Priority:    PriorityLow,
		}
	case EventTileHoverStart, EventTileHoverEnd:
		return CategoryConfig{Throttle: DefaultHoverThrottle, Priority: PriorityLow}
	case EventTileProximity:
		return CategoryConfig{Throttle: DefaultDragThrottle, Priority: PriorityMedium, Batchable: true}
	case EventPerformanceUpdate:
		return CategoryConfig{Throttle: DefaultPerfInterval, Priority: PriorityLow}
	case EventTileSelected, EventTileDeselected,
		EventCameraAnimStart, EventCameraAnimEnd, EventPerformanceWarning:
		return CategoryConfig{Priority: PriorityMedium}
	default:
		return CategoryConfig{Priority: PriorityMedium}
	}
}

// normalize fills zero fields with defaults.
func (ec EventConfig) normalize() EventConfig {
	if ec.MaxQueue == 0 {
		ec.MaxQueue = DefaultMaxEventQueue
	}
	if ec.BatchWindow == 0 {
		ec.BatchWindow = DefaultBatchWindow
	}
	if ec.MaxBatch == 0 {
		ec.MaxBatch = DefaultMaxEventBatch
	}
	return ec
}

// --- Subscriptions ---

type handlerEntry struct {
	id    uint32
	fn    Handler
	batch BatchHandler
}

// Subscription allows removing a registered handler.
type Subscription struct {
	pipe *EventPipeline
	cats []EventCategory
	id   uint32
}

// Remove unregisters this subscription so it no longer fires.
func (s Subscription) Remove() {
	if s.pipe == nil {
		return
	}
	for _, c := range s.cats {
		subs := s.pipe.subs[c]
		for i := range subs {
			if subs[i].id == s.id {
				copy(subs[i:], subs[i+1:])
				subs[len(subs)-1] = handlerEntry{}
				s.pipe.subs[c] = subs[:len(subs)-1]
				break
			}
		}
	}
}

// --- Pipeline ---

// categoryState is the per-category runtime of the pipeline.
type categoryState struct {
	cfg        CategoryConfig
	lastEmit   float64
	hasEmitted bool
	pending    *Event // coalesced latest during the throttle window
	lastSent   Event  // previous delivery, for dedup comparison
	queue      []Event
	queueStart float64
}

// EventPipeline is a pass-through decorator around raw state-change
// notifications: a typed publish/subscribe registry with per-category
// throttling, deduplication, priority classes, and batching.
//
// The pipeline is frame-driven: it keeps an internal clock advanced by
// Update(dt) instead of wall-clock timers, matching the engine's
// cooperative single-threaded model. Close cancels all pending work so
// nothing is delivered into a torn-down consumer.
type EventPipeline struct {
	cfg    EventConfig
	states [numEventCategories]categoryState
	subs   map[EventCategory][]handlerEntry
	nextID uint32
	now    float64
	queued int // total events held in pendings and batch queues
	closed bool

	dropped int // lifetime count of overflow-dropped events
}

// NewEventPipeline creates a pipeline with the given (normalized)
// configuration.
func NewEventPipeline(cfg EventConfig) *EventPipeline {
	p := &EventPipeline{
		cfg:  cfg.normalize(),
		subs: make(map[EventCategory][]handlerEntry),
	}
	for c := EventCategory(0); c < numEventCategories; c++ {
		cc := defaultCategoryConfig(c)
		if override, ok := p.cfg.Categories[c]; ok {
			cc = override
		}
		p.states[c].cfg = cc
	}
	return p
}

// Now returns the pipeline clock in seconds.
func (p *EventPipeline) Now() float64 { return p.now }

// Dropped returns how many events overflow has discarded.
func (p *EventPipeline) Dropped() int { return p.dropped }

// Subscribe registers fn for one category.
func (p *EventPipeline) Subscribe(c EventCategory, fn Handler) Subscription {
	p.nextID++
	p.subs[c] = append(p.subs[c], handlerEntry{id: p.nextID, fn: fn})
	return Subscription{pipe: p, cats: []EventCategory{c}, id: p.nextID}
}

// SubscribeAll registers fn against every category in cats. Aggregator
// subscriptions ("all drag events") are exactly this with one of the
// predefined category sets.
func (p *EventPipeline) SubscribeAll(cats []EventCategory, fn Handler) Subscription {
	p.nextID++
	for _, c := range cats {
		p.subs[c] = append(p.subs[c], handlerEntry{id: p.nextID, fn: fn})
	}
	return Subscription{pipe: p, cats: cats, id: p.nextID}
}

// SubscribeBatch registers a batch handler for a batchable category. It
// receives each flush as a single slice. Non-batchable categories
// deliver one-element slices.
func (p *EventPipeline) SubscribeBatch(c EventCategory, fn BatchHandler) Subscription {
	p.nextID++
	p.subs[c] = append(p.subs[c], handlerEntry{id: p.nextID, batch: fn})
	return Subscription{pipe: p, cats: []EventCategory{c}, id: p.nextID}
}

// Publish routes one event through the category's optimization path.
func (p *EventPipeline) Publish(c EventCategory, payload any) {
	if p.closed || c >= numEventCategories {
		return
	}
	st := &p.states[c]
	ev := Event{Category: c, Payload: payload, Time: p.now}

	// High priority bypasses throttling and dedup entirely.
	if st.cfg.Priority == PriorityHigh {
		p.deliver(st, ev)
		return
	}

	if p.isDuplicate(st, ev) {
		return
	}

	if st.cfg.Batchable {
		p.enqueueBatch(st, ev)
		return
	}

	if st.cfg.Throttle <= 0 {
		p.deliver(st, ev)
		return
	}

	// Leading edge: deliver immediately when the interval has elapsed.
	if !st.hasEmitted || p.now-st.lastEmit >= st.cfg.Throttle.Seconds() {
		p.deliver(st, ev)
		return
	}

	// Trailing edge: coalesce to the latest payload; Update flushes it
	// when the interval expires.
	if st.pending == nil {
		p.reserveQueueSlot(st)
		p.queued++
	}
	st.pending = &ev
}

// isDuplicate reports whether ev should be suppressed as a
// near-duplicate of the previous delivery.
func (p *EventPipeline) isDuplicate(st *categoryState, ev Event) bool {
	if st.cfg.DedupWindow <= 0 || !st.hasEmitted {
		return false
	}
	if p.now-st.lastSent.Time >= st.cfg.DedupWindow.Seconds() {
		return false
	}
	dc, ok := ev.Payload.(DeltaComparable)
	if !ok {
		return false
	}
	delta := dc.DeltaFrom(st.lastSent.Payload)
	return delta >= 0 && delta < st.cfg.DedupDelta
}

// enqueueBatch queues ev for batched flush, forcing an immediate flush
// at the size cap.
func (p *EventPipeline) enqueueBatch(st *categoryState, ev Event) {
	if len(st.queue) == 0 {
		st.queueStart = p.now
	}
	p.reserveQueueSlot(st)
	st.queue = append(st.queue, ev)
	p.queued++
	if len(st.queue) >= p.cfg.MaxBatch {
		p.flushBatch(st)
	}
}

// reserveQueueSlot enforces the queue bound before adding an event.
// On overflow the globally oldest queued low-priority event is dropped,
// regardless of which category holds it, and a performance warning is
// emitted.
func (p *EventPipeline) reserveQueueSlot(keep *categoryState) {
	if p.queued < p.cfg.MaxQueue {
		return
	}
	var victim *categoryState
	var victimTime float64
	victimPending := false
	for i := range p.states {
		st := &p.states[i]
		if st.cfg.Priority != PriorityLow {
			continue
		}
		if len(st.queue) > 0 && (victim == nil || st.queue[0].Time < victimTime) {
			victim, victimTime, victimPending = st, st.queue[0].Time, false
		}
		if st.pending != nil && st != keep && (victim == nil || st.pending.Time < victimTime) {
			victim, victimTime, victimPending = st, st.pending.Time, true
		}
	}
	if victim != nil {
		if victimPending {
			victim.pending = nil
		} else {
			victim.queue = victim.queue[1:]
		}
		p.queued--
		p.dropped++
		p.warnOverflow()
		return
	}
	// No low-priority event to evict: count the drop against the
	// incoming event's own category as a last resort.
	p.dropped++
	p.warnOverflow()
}

// warnOverflow reports queue overflow as a recoverable performance
// warning, never a fatal error.
func (p *EventPipeline) warnOverflow() {
	st := &p.states[EventPerformanceWarning]
	p.deliver(st, Event{
		Category: EventPerformanceWarning,
		Payload: PerfWarning{
			Reason:  "event queue overflow",
			Queued:  p.queued,
			Dropped: p.dropped,
		},
		Time: p.now,
	})
}

// deliver fans ev out to the category's handlers.
func (p *EventPipeline) deliver(st *categoryState, ev Event) {
	st.lastEmit = p.now
	st.lastSent = ev
	st.hasEmitted = true
	for _, h := range p.subs[ev.Category] {
		if h.fn != nil {
			h.fn(ev)
		}
		if h.batch != nil {
			h.batch([]Event{ev})
		}
	}
}

// flushBatch delivers the queued events of one category as a single
// array, then resets the queue.
func (p *EventPipeline) flushBatch(st *categoryState) {
	if len(st.queue) == 0 {
		return
	}
	batch := st.queue
	st.queue = nil
	p.queued -= len(batch)
	st.lastEmit = p.now
	st.lastSent = batch[len(batch)-1]
	st.hasEmitted = true
	cat := batch[0].Category
	for _, h := range p.subs[cat] {
		if h.batch != nil {
			h.batch(batch)
		}
		if h.fn != nil {
			for _, ev := range batch {
				h.fn(ev)
			}
		}
	}
}

// Update advances the pipeline clock and flushes trailing-edge pendings
// and expired batch windows. Called once per frame by the engine.
func (p *EventPipeline) Update(dt float64) {
	if p.closed {
		return
	}
	p.now += dt
	for i := range p.states {
		st := &p.states[i]
		if st.pending != nil && p.now-st.lastEmit >= st.cfg.Throttle.Seconds() {
			ev := *st.pending
			st.pending = nil
			p.queued--
			p.deliver(st, ev)
		}
		if len(st.queue) > 0 && p.now-st.queueStart >= p.cfg.BatchWindow.Seconds() {
			p.flushBatch(st)
		}
	}
}

// QueueLen returns the number of events currently held back by
// throttling or batching.
func (p *EventPipeline) QueueLen() int { return p.queued }

// Close cancels all scheduled work. Pending and batched events are
// discarded without delivery, and further publishes are ignored, so a
// torn-down consumer never hears from the pipeline again.
func (p *EventPipeline) Close() {
	p.closed = true
	for i := range p.states {
		p.states[i].pending = nil
		p.states[i].queue = nil
	}
	p.queued = 0
}
