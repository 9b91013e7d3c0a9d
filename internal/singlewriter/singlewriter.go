// Package singlewriter implements the Single Writer (C9): the sole
// subscriber permitted to mutate the cache. It consumes events from
// the event bus, reconciles the cache to match what the repository
// already committed, then fans the event out to broadcasters.
package singlewriter

import (
	"context"

	"github.com/titan-aas/titan-aas/internal/cache"
	"github.com/titan-aas/titan-aas/internal/eventbus"
	"github.com/titan-aas/titan-aas/internal/logging"
)

// Broadcaster receives every event after cache reconciliation succeeds.
// A failing broadcaster must not prevent delivery to the others, so
// Writer isolates each call and only logs the error.
type Broadcaster interface {
	Name() string
	Broadcast(ctx context.Context, event eventbus.Event) error
}

// Writer subscribes to a bus and drives cache reconciliation plus
// broadcaster fan-out for every event it observes. It is the only
// component in the system that calls cache write methods.
type Writer struct {
	cache        cache.Cache
	broadcasters []Broadcaster
	unsubscribe  func()
	logger       *logging.Logger
}

// New constructs a Writer. Call Start to begin consuming. logger may
// be nil, in which case a default JSON logger is used.
func New(c cache.Cache, logger *logging.Logger, broadcasters ...Broadcaster) *Writer {
	if logger == nil {
		logger = logging.NewFromEnv("singlewriter")
	}
	return &Writer{cache: c, broadcasters: broadcasters, logger: logger}
}

// Start subscribes to bus. It is safe to call once per Writer.
func (w *Writer) Start(bus eventbus.Bus) {
	w.unsubscribe = bus.Subscribe(w.handle)
}

// Stop unsubscribes from the bus. It does not wait for in-flight
// handling to finish; the bus's own Close/unsubscribe semantics govern
// that.
func (w *Writer) Stop() {
	if w.unsubscribe != nil {
		w.unsubscribe()
	}
}

// handle is the eventbus.Handler driving reconciliation. Handler
// errors are logged, not returned, since eventbus delivery is
// at-least-once and a later duplicate delivery gives the writer
// another chance to reconcile; returning an error here would only
// cause the bus to log the same failure a second time.
func (w *Writer) handle(ctx context.Context, event eventbus.Event) error {
	if err := w.reconcile(ctx, event); err != nil {
		w.logger.WithContext(ctx).WithField("event_id", event.EventID).WithError(err).Error("reconcile event")
		return nil
	}
	w.broadcast(ctx, event)
	return nil
}

func (w *Writer) reconcile(ctx context.Context, event eventbus.Event) error {
	switch event.Kind {
	case eventbus.KindAAS:
		return w.reconcileEntity(ctx, cache.KindShell, event)
	case eventbus.KindSubmodel:
		return w.reconcileSubmodel(ctx, event)
	case eventbus.KindConceptDesc:
		return w.reconcileEntity(ctx, cache.KindConcept, event)
	case eventbus.KindSubmodelElement:
		return w.reconcileElement(ctx, event)
	default:
		w.logger.WithContext(ctx).WithField("kind", event.Kind).Warn("unknown event kind")
		return nil
	}
}

// reconcileEntity handles AAS and ConceptDescription events, which
// have no per-element cache to invalidate.
func (w *Writer) reconcileEntity(ctx context.Context, kind cache.EntityKind, event eventbus.Event) error {
	switch event.Type {
	case eventbus.EventCreated, eventbus.EventUpdated:
		if len(event.DocBytes) == 0 || event.ETag == "" {
			return nil
		}
		return w.cache.SetPair(ctx, kind, event.IdentifierB64, cache.Pair{Bytes: event.DocBytes, ETag: event.ETag})
	case eventbus.EventDeleted:
		return w.cache.Delete(ctx, kind, event.IdentifierB64)
	default:
		return nil
	}
}

// reconcileSubmodel additionally invalidates element-value cache
// entries on UPDATED and DELETED, since a whole-submodel change
// invalidates every cached element value beneath it.
func (w *Writer) reconcileSubmodel(ctx context.Context, event eventbus.Event) error {
	switch event.Type {
	case eventbus.EventCreated:
		if len(event.DocBytes) == 0 || event.ETag == "" {
			return nil
		}
		return w.cache.SetPair(ctx, cache.KindSubmodel, event.IdentifierB64, cache.Pair{Bytes: event.DocBytes, ETag: event.ETag})
	case eventbus.EventUpdated:
		if len(event.DocBytes) > 0 && event.ETag != "" {
			if err := w.cache.SetPair(ctx, cache.KindSubmodel, event.IdentifierB64, cache.Pair{Bytes: event.DocBytes, ETag: event.ETag}); err != nil {
				return err
			}
		}
		return w.cache.InvalidateSubmodelElements(ctx, event.IdentifierB64)
	case eventbus.EventDeleted:
		if err := w.cache.Delete(ctx, cache.KindSubmodel, event.IdentifierB64); err != nil {
			return err
		}
		return w.cache.InvalidateSubmodelElements(ctx, event.IdentifierB64)
	default:
		return nil
	}
}

func (w *Writer) reconcileElement(ctx context.Context, event eventbus.Event) error {
	switch event.Type {
	case eventbus.EventUpdated:
		if len(event.ValueBytes) == 0 {
			return nil
		}
		return w.cache.SetElementValue(ctx, event.SubmodelIDB64, event.IDShortPath, event.ValueBytes)
	case eventbus.EventDeleted:
		return w.cache.DeleteElementValue(ctx, event.SubmodelIDB64, event.IDShortPath)
	default:
		return nil
	}
}

// broadcast fans the event out to every registered broadcaster,
// isolating each call so one broadcaster's failure never blocks or
// skips the others.
func (w *Writer) broadcast(ctx context.Context, event eventbus.Event) {
	for _, b := range w.broadcasters {
		func(b Broadcaster) {
			defer func() {
				if r := recover(); r != nil {
					w.logger.WithContext(ctx).WithField("broadcaster", b.Name()).Errorf("broadcaster panicked: %v", r)
				}
			}()
			if err := b.Broadcast(ctx, event); err != nil {
				w.logger.WithContext(ctx).WithField("broadcaster", b.Name()).WithError(err).Error("broadcaster failed")
			}
		}(b)
	}
}
