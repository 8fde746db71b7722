package services

import (
	"context"
	"log"
	"sync"
	"time"

	"bvesterAPI/internal/event"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	gamificationEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamification_events_total",
			Help: "Total number of gamification events emitted by the engine",
		},
		[]string{"type"},
	)
	gamificationEventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gamification_events_dropped_total",
			Help: "Events dropped because the dispatch queue was full",
		},
	)
)

// EventDispatcher drains the engine's event sink on a small worker pool:
// each event is appended to the event store and the emitting user's
// progress snapshot is upserted. The engine calls Emit while holding its
// lock, so Emit never blocks; a full queue drops the event and keeps the
// snapshot eventually consistent via the next one.
type EventDispatcher struct {
	history *HistoryService
	engine  *GamificationService
	workers int

	jobQueue chan event.Event
	stopChan chan struct{}
	wg       sync.WaitGroup
}

var registerMetricsOnce sync.Once

func NewEventDispatcher(history *HistoryService, engine *GamificationService) *EventDispatcher {
	d := &EventDispatcher{
		history:  history,
		engine:   engine,
		workers:  5,
		jobQueue: make(chan event.Event, 256),
		stopChan: make(chan struct{}),
	}

	registerMetricsOnce.Do(func() {
		prometheus.MustRegister(gamificationEvents, gamificationEventsDropped)
	})

	d.startWorkers()
	return d
}

// Emit satisfies event.Sink.
func (d *EventDispatcher) Emit(e event.Event) {
	gamificationEvents.WithLabelValues(string(e.Type)).Inc()

	select {
	case d.jobQueue <- e:
	default:
		gamificationEventsDropped.Inc()
		log.Printf("EventDispatcher: queue full, dropping %s event for user %s", e.Type, e.UserID)
	}
}

func (d *EventDispatcher) startWorkers() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

func (d *EventDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case e := <-d.jobQueue:
			d.processEvent(e)
		case <-d.stopChan:
			return
		}
	}
}

func (d *EventDispatcher) processEvent(e event.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := d.history.RecordEvent(ctx, e); err != nil {
		log.Printf("EventDispatcher: failed to persist %s event for user %s: %v", e.Type, e.UserID, err)
	}

	if snap := d.engine.Snapshot(e.UserID); snap != nil {
		if err := d.history.SaveProgress(ctx, snap); err != nil {
			log.Printf("EventDispatcher: failed to save progress for user %s: %v", e.UserID, err)
		}
	}
}

// Stop drains the workers. Queued events that were not picked up yet are
// lost, which the shutdown path accepts.
func (d *EventDispatcher) Stop() {
	close(d.stopChan)
	d.wg.Wait()
}
