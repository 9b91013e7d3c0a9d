package singlewriter

import (
	"context"
	"errors"
	"testing"

	"github.com/titan-aas/titan-aas/internal/cache"
	"github.com/titan-aas/titan-aas/internal/eventbus"
)

type fakeCache struct {
	pairs       map[string]cache.Pair
	elementVals map[string][]byte
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{pairs: map[string]cache.Pair{}, elementVals: map[string][]byte{}}
}

func pairKey(kind cache.EntityKind, id string) string { return string(kind) + ":" + id }
func elemKey(smID, path string) string                { return smID + "/" + path }

func (f *fakeCache) GetPair(ctx context.Context, kind cache.EntityKind, id string) (cache.Pair, bool, error) {
	p, ok := f.pairs[pairKey(kind, id)]
	return p, ok, nil
}
func (f *fakeCache) SetPair(ctx context.Context, kind cache.EntityKind, id string, pair cache.Pair) error {
	f.pairs[pairKey(kind, id)] = pair
	return nil
}
func (f *fakeCache) Delete(ctx context.Context, kind cache.EntityKind, id string) error {
	delete(f.pairs, pairKey(kind, id))
	return nil
}
func (f *fakeCache) GetElementValue(ctx context.Context, smID, path string) ([]byte, bool, error) {
	v, ok := f.elementVals[elemKey(smID, path)]
	return v, ok, nil
}
func (f *fakeCache) SetElementValue(ctx context.Context, smID, path string, value []byte) error {
	f.elementVals[elemKey(smID, path)] = value
	return nil
}
func (f *fakeCache) DeleteElementValue(ctx context.Context, smID, path string) error {
	delete(f.elementVals, elemKey(smID, path))
	return nil
}
func (f *fakeCache) InvalidateSubmodelElements(ctx context.Context, smID string) error {
	f.invalidated = append(f.invalidated, smID)
	for k := range f.elementVals {
		if len(k) > len(smID) && k[:len(smID)+1] == smID+"/" {
			delete(f.elementVals, k)
		}
	}
	return nil
}

type recordingBroadcaster struct {
	name    string
	events  []eventbus.Event
	failErr error
}

func (r *recordingBroadcaster) Name() string { return r.name }
func (r *recordingBroadcaster) Broadcast(ctx context.Context, event eventbus.Event) error {
	r.events = append(r.events, event)
	return r.failErr
}

func TestWriterReconcilesAASCreate(t *testing.T) {
	c := newFakeCache()
	w := New(c, nil)

	err := w.handle(context.Background(), eventbus.Event{
		Kind: eventbus.KindAAS, Type: eventbus.EventCreated,
		IdentifierB64: "id1", DocBytes: []byte("{}"), ETag: "e1",
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	pair, ok, _ := c.GetPair(context.Background(), cache.KindShell, "id1")
	if !ok || pair.ETag != "e1" {
		t.Fatalf("pair = %+v, ok = %v", pair, ok)
	}
}

func TestWriterReconcilesAASDelete(t *testing.T) {
	c := newFakeCache()
	c.pairs[pairKey(cache.KindShell, "id1")] = cache.Pair{Bytes: []byte("{}"), ETag: "e1"}
	w := New(c, nil)

	if err := w.handle(context.Background(), eventbus.Event{
		Kind: eventbus.KindAAS, Type: eventbus.EventDeleted, IdentifierB64: "id1",
	}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if _, ok, _ := c.GetPair(context.Background(), cache.KindShell, "id1"); ok {
		t.Fatal("expected pair deleted")
	}
}

func TestWriterSubmodelUpdateInvalidatesElements(t *testing.T) {
	c := newFakeCache()
	c.elementVals[elemKey("sm1", "temp")] = []byte("21")
	w := New(c, nil)

	if err := w.handle(context.Background(), eventbus.Event{
		Kind: eventbus.KindSubmodel, Type: eventbus.EventUpdated,
		IdentifierB64: "sm1", DocBytes: []byte("{}"), ETag: "e2",
	}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if _, ok, _ := c.GetElementValue(context.Background(), "sm1", "temp"); ok {
		t.Fatal("expected element value invalidated")
	}
	if len(c.invalidated) != 1 || c.invalidated[0] != "sm1" {
		t.Fatalf("invalidated = %v", c.invalidated)
	}
}

func TestWriterElementUpdateSetsValue(t *testing.T) {
	c := newFakeCache()
	w := New(c, nil)

	if err := w.handle(context.Background(), eventbus.Event{
		Kind: eventbus.KindSubmodelElement, Type: eventbus.EventUpdated,
		SubmodelIDB64: "sm1", IDShortPath: "temp", ValueBytes: []byte(`"22"`),
	}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	v, ok, _ := c.GetElementValue(context.Background(), "sm1", "temp")
	if !ok || string(v) != `"22"` {
		t.Fatalf("v = %s, ok = %v", v, ok)
	}
}

func TestWriterBroadcastIsolatesFailures(t *testing.T) {
	c := newFakeCache()
	good := &recordingBroadcaster{name: "good"}
	bad := &recordingBroadcaster{name: "bad", failErr: errors.New("boom")}
	w := New(c, nil, bad, good)

	if err := w.handle(context.Background(), eventbus.Event{
		Kind: eventbus.KindAAS, Type: eventbus.EventCreated,
		IdentifierB64: "id1", DocBytes: []byte("{}"), ETag: "e1",
	}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(good.events) != 1 {
		t.Fatalf("good broadcaster got %d events, want 1", len(good.events))
	}
	if len(bad.events) != 1 {
		t.Fatalf("bad broadcaster got %d events, want 1", len(bad.events))
	}
}
