package session

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"studio/internal/domain"
)

type countingPreviews struct {
	mu       sync.Mutex
	next     int
	released map[string]int
}

func newCountingPreviews() *countingPreviews {
	return &countingPreviews{released: make(map[string]int)}
}

func (p *countingPreviews) Register(img domain.Image) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
	return fmt.Sprintf("preview-%d", p.next)
}

func (p *countingPreviews) Release(handle string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released[handle]++
}

func pngImage(b ...byte) domain.Image {
	if len(b) == 0 {
		b = []byte{0x89, 'P', 'N', 'G'}
	}
	return domain.Image{MIME: "image/png", Data: b}
}

func newTestStore(t *testing.T, max int) (*Store, *countingPreviews) {
	t.Helper()
	previews := newCountingPreviews()
	return NewStore(Options{MaxItems: max, Previews: previews}), previews
}

func assertInvariants(t *testing.T, it domain.Item) {
	t.Helper()
	switch it.Status {
	case domain.StatusDone:
		if it.Result == nil || it.Result.Empty() || it.Error != "" {
			t.Fatalf("done item %s violates invariant: %#v", it.ID, it)
		}
	case domain.StatusError:
		if it.Error == "" || it.Result != nil {
			t.Fatalf("error item %s violates invariant: %#v", it.ID, it)
		}
	default:
		if it.Result != nil || it.Error != "" {
			t.Fatalf("%s item %s carries result or error: %#v", it.Status, it.ID, it)
		}
	}
}

func TestAddRespectsMaxItems(t *testing.T) {
	s, _ := newTestStore(t, 10)
	for i := 0; i < 10; i++ {
		if _, err := s.Add(fmt.Sprintf("p%d.png", i), pngImage()); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	if _, err := s.Add("p11.png", pngImage()); !errors.Is(err, domain.ErrStoreFull) {
		t.Fatalf("11th add err = %v, want ErrStoreFull", err)
	}
	if s.Len() != 10 {
		t.Fatalf("Len = %d, want 10", s.Len())
	}
	if s.Remaining() != 0 {
		t.Fatalf("Remaining = %d, want 0", s.Remaining())
	}
}

func TestAddRejectsEmptyPayload(t *testing.T) {
	s, _ := newTestStore(t, 2)
	if _, err := s.Add("empty.png", domain.Image{MIME: "image/png"}); !errors.Is(err, domain.ErrNotImage) {
		t.Fatalf("err = %v, want ErrNotImage", err)
	}
}

func TestAddPreservesOrderAndIsolatesSource(t *testing.T) {
	s, _ := newTestStore(t, 5)
	src := pngImage(1, 2, 3)
	first, _ := s.Add("a.png", src)
	second, _ := s.Add("b.png", pngImage())
	src.Data[0] = 9

	items := s.List()
	if len(items) != 2 || items[0].ID != first || items[1].ID != second {
		t.Fatalf("unexpected order: %#v", items)
	}
	if items[0].Source.Data[0] != 1 {
		t.Fatalf("source aliased caller bytes")
	}
	if items[0].Status != domain.StatusIdle {
		t.Fatalf("status = %s, want idle", items[0].Status)
	}
	items[0].Source.Data[1] = 7
	again, _ := s.Get(first)
	if again.Source.Data[1] != 2 {
		t.Fatalf("List leaked internal bytes")
	}
}

func TestRemoveReleasesPreviewOnce(t *testing.T) {
	s, previews := newTestStore(t, 5)
	id, _ := s.Add("a.png", pngImage())
	item, _ := s.Get(id)

	if !s.Remove(id) {
		t.Fatalf("Remove returned false for existing item")
	}
	if s.Remove(id) {
		t.Fatalf("second Remove should be a no-op")
	}
	if previews.released[item.PreviewHandle] != 1 {
		t.Fatalf("preview released %d times, want 1", previews.released[item.PreviewHandle])
	}
	if _, ok := s.Get(id); ok {
		t.Fatalf("item still present after remove")
	}
	if got := s.Eligible(nil); len(got) != 0 {
		t.Fatalf("removed item still eligible: %v", got)
	}
}

func TestClearReleasesAllPreviews(t *testing.T) {
	s, previews := newTestStore(t, 5)
	for i := 0; i < 3; i++ {
		_, _ = s.Add("x.png", pngImage())
	}
	if n := s.Clear(); n != 3 {
		t.Fatalf("Clear = %d, want 3", n)
	}
	if len(previews.released) != 3 {
		t.Fatalf("released %d handles, want 3", len(previews.released))
	}
	if s.Len() != 0 {
		t.Fatalf("Len after clear = %d", s.Len())
	}
	if _, err := s.Add("again.png", pngImage()); err != nil {
		t.Fatalf("add after clear: %v", err)
	}
}

func TestUpdateDescriptionEditability(t *testing.T) {
	s, _ := newTestStore(t, 5)
	id, _ := s.Add("a.png", pngImage())

	if err := s.UpdateDescription(id, "  Red Lipstick "); err != nil {
		t.Fatalf("idle update: %v", err)
	}
	if it, _ := s.Get(id); it.Description != "Red Lipstick" {
		t.Fatalf("description = %q", it.Description)
	}
	if _, err := s.Begin(id); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := s.UpdateDescription(id, "changed"); !errors.Is(err, domain.ErrNotEditable) {
		t.Fatalf("processing update err = %v, want ErrNotEditable", err)
	}
	if _, err := s.Fail(id, "boom"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if err := s.UpdateDescription(id, "after error"); err != nil {
		t.Fatalf("error-state update: %v", err)
	}
	if err := s.UpdateDescription("missing", "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing update err = %v, want ErrNotFound", err)
	}
}

func TestTransitionStateMachine(t *testing.T) {
	s, _ := newTestStore(t, 5)
	id, _ := s.Add("a.png", pngImage())
	result := pngImage(4, 5, 6)

	if _, err := s.Complete(id, result, "office"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("idle -> done err = %v", err)
	}
	if _, err := s.Fail(id, "x"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("idle -> error err = %v", err)
	}

	it, err := s.Begin(id)
	if err != nil {
		t.Fatalf("idle -> processing: %v", err)
	}
	assertInvariants(t, it)
	if _, err := s.Begin(id); !errors.Is(err, domain.ErrItemBusy) {
		t.Fatalf("double begin err = %v, want ErrItemBusy", err)
	}
	if _, err := s.Complete(id, domain.Image{}, "office"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("done without result err = %v", err)
	}

	it, err = s.Complete(id, result, "office")
	if err != nil {
		t.Fatalf("processing -> done: %v", err)
	}
	assertInvariants(t, it)
	if it.SceneUsed != "office" {
		t.Fatalf("scene used = %q", it.SceneUsed)
	}

	// re-roll
	it, err = s.Begin(id)
	if err != nil {
		t.Fatalf("done -> processing: %v", err)
	}
	assertInvariants(t, it)

	it, err = s.Fail(id, "")
	if err != nil {
		t.Fatalf("processing -> error: %v", err)
	}
	assertInvariants(t, it)
	if it.Error != GenericFailure {
		t.Fatalf("error = %q, want generic message", it.Error)
	}

	it, err = s.Begin(id)
	if err != nil {
		t.Fatalf("error -> processing: %v", err)
	}
	if it.Error != "" {
		t.Fatalf("error detail not cleared on retry: %q", it.Error)
	}
	if _, err := s.Transition(id, domain.StatusIdle, domain.Payload{}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("-> idle err = %v", err)
	}
	if _, err := s.Begin("missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing begin err = %v", err)
	}
}

func TestEligibleSnapshot(t *testing.T) {
	s, _ := newTestStore(t, 10)
	idle, _ := s.Add("idle.png", pngImage())
	busy, _ := s.Add("busy.png", pngImage())
	done, _ := s.Add("done.png", pngImage())
	failed, _ := s.Add("failed.png", pngImage())

	_, _ = s.Begin(busy)
	_, _ = s.Begin(done)
	_, _ = s.Complete(done, pngImage(9), "auto")
	_, _ = s.Begin(failed)
	_, _ = s.Fail(failed, "nope")

	got := s.Eligible(nil)
	if len(got) != 2 || got[0] != idle || got[1] != failed {
		t.Fatalf("Eligible(nil) = %v, want [%s %s]", got, idle, failed)
	}
	got = s.Eligible([]string{failed, busy, "unknown"})
	if len(got) != 1 || got[0] != failed {
		t.Fatalf("Eligible(subset) = %v", got)
	}
	if !s.HasCompleted() {
		t.Fatalf("HasCompleted = false")
	}
	if c := s.Completed(); len(c) != 1 || c[0].ID != done {
		t.Fatalf("Completed = %#v", c)
	}
}

func TestClaimOnlyTakesRunnableItems(t *testing.T) {
	s, _ := newTestStore(t, 10)
	idle, _ := s.Add("idle.png", pngImage())
	failed, _ := s.Add("failed.png", pngImage())
	done, _ := s.Add("done.png", pngImage())

	_, _ = s.Begin(failed)
	_, _ = s.Fail(failed, "nope")
	_, _ = s.Begin(done)
	_, _ = s.Complete(done, pngImage(7), "outdoor")

	for _, id := range []string{idle, failed} {
		it, err := s.Claim(id)
		if err != nil {
			t.Fatalf("Claim(%s): %v", id, err)
		}
		if it.Status != domain.StatusProcessing || it.Error != "" {
			t.Fatalf("Claim(%s) = %#v", id, it)
		}
	}

	if _, err := s.Claim(idle); !errors.Is(err, domain.ErrItemBusy) {
		t.Fatalf("claim processing err = %v", err)
	}
	if _, err := s.Claim(done); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("claim done err = %v", err)
	}
	it, _ := s.Get(done)
	if it.Status != domain.StatusDone || it.SceneUsed != "outdoor" || it.Result == nil {
		t.Fatalf("done item changed by refused claim: %#v", it)
	}
	if _, err := s.Claim("missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("claim missing err = %v", err)
	}
}

func TestConcurrentBeginAllowsOneWinner(t *testing.T) {
	s, _ := newTestStore(t, 1)
	id, _ := s.Add("a.png", pngImage())

	const contenders = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Begin(id); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("wins = %d, want exactly 1", wins)
	}
}

func TestMemoryPreviews(t *testing.T) {
	p := NewMemoryPreviews()
	h := p.Register(pngImage(1))
	if img, ok := p.Lookup(h); !ok || img.Data[0] != 1 {
		t.Fatalf("lookup failed: %#v %v", img, ok)
	}
	p.Release(h)
	p.Release(h)
	if _, ok := p.Lookup(h); ok {
		t.Fatalf("handle still live after release")
	}
	if p.Len() != 0 {
		t.Fatalf("Len = %d", p.Len())
	}
}
