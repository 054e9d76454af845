package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"studio/internal/domain"
)

// DefaultMaxItems caps how many items one session may hold.
const DefaultMaxItems = 10

// GenericFailure is recorded when a pipeline fails without a message.
const GenericFailure = "Unknown error occurred"

type Options struct {
	MaxItems int
	Previews PreviewRegistry
	Clock    func() time.Time
	NewID    func() string
}

// Store is the ordered, in-memory set of items for one session. Every
// mutation goes through its methods and is serialized by mu.
type Store struct {
	mu       sync.Mutex
	order    []string
	items    map[string]*domain.Item
	maxItems int
	previews PreviewRegistry
	now      func() time.Time
	newID    func() string
}

func NewStore(opts Options) *Store {
	maxItems := opts.MaxItems
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	previews := opts.Previews
	if previews == nil {
		previews = NewMemoryPreviews()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Store{
		items:    make(map[string]*domain.Item),
		maxItems: maxItems,
		previews: previews,
		now:      clock,
		newID:    newID,
	}
}

// MaxItems returns the configured capacity.
func (s *Store) MaxItems() int {
	return s.maxItems
}

// Add creates an idle item for src and returns its id.
func (s *Store) Add(filename string, src domain.Image) (string, error) {
	if src.Empty() {
		return "", fmt.Errorf("session: add %q: %w", filename, domain.ErrNotImage)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.order) >= s.maxItems {
		return "", domain.ErrStoreFull
	}
	id := s.newID()
	if _, exists := s.items[id]; exists {
		return "", fmt.Errorf("session: duplicate id %q", id)
	}
	src = src.Clone()
	now := s.now()
	item := &domain.Item{
		ID:            id,
		Filename:      strings.TrimSpace(filename),
		Source:        src,
		PreviewHandle: s.previews.Register(src),
		Status:        domain.StatusIdle,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.items[id] = item
	s.order = append(s.order, id)
	return id, nil
}

// Remove deletes the item and releases its preview. It reports whether the
// item existed.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	item, ok := s.items[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.items, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	handle := item.PreviewHandle
	s.mu.Unlock()

	s.previews.Release(handle)
	return true
}

// Clear removes every item and returns how many were dropped.
func (s *Store) Clear() int {
	s.mu.Lock()
	handles := make([]string, 0, len(s.order))
	for _, id := range s.order {
		handles = append(handles, s.items[id].PreviewHandle)
	}
	s.items = make(map[string]*domain.Item)
	s.order = nil
	s.mu.Unlock()

	for _, h := range handles {
		s.previews.Release(h)
	}
	return len(handles)
}

// UpdateDescription sets the free-text hint. Only idle and error items are
// editable; the scheduler reads the description when processing starts.
func (s *Store) UpdateDescription(id, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return fmt.Errorf("session: item %s: %w", id, domain.ErrNotFound)
	}
	if !item.Status.Editable() {
		return fmt.Errorf("session: item %s is %s: %w", id, item.Status, domain.ErrNotEditable)
	}
	item.Description = strings.TrimSpace(text)
	item.UpdatedAt = s.now()
	return nil
}

// Transition applies one state machine edge atomically and returns the
// updated item.
//
//	idle|error|done -> processing   clears Error and Result
//	processing -> done              requires Result, records Scene
//	processing -> error             records Error, drops Result
func (s *Store) Transition(id string, to domain.Status, p domain.Payload) (domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return domain.Item{}, fmt.Errorf("session: item %s: %w", id, domain.ErrNotFound)
	}
	return s.apply(item, to, p)
}

// apply performs the edge on item. Callers hold mu.
func (s *Store) apply(item *domain.Item, to domain.Status, p domain.Payload) (domain.Item, error) {
	id := item.ID
	from := item.Status

	switch to {
	case domain.StatusProcessing:
		if from == domain.StatusProcessing {
			return domain.Item{}, fmt.Errorf("session: item %s: %w", id, domain.ErrItemBusy)
		}
		item.Error = ""
		item.Result = nil
		item.SceneUsed = ""
	case domain.StatusDone:
		if from != domain.StatusProcessing {
			return domain.Item{}, s.invalid(id, from, to)
		}
		if p.Result == nil || p.Result.Empty() {
			return domain.Item{}, fmt.Errorf("session: item %s: done without result: %w", id, domain.ErrInvalidTransition)
		}
		res := p.Result.Clone()
		item.Result = &res
		item.SceneUsed = p.Scene
		item.Error = ""
	case domain.StatusError:
		if from != domain.StatusProcessing {
			return domain.Item{}, s.invalid(id, from, to)
		}
		msg := strings.TrimSpace(p.Error)
		if msg == "" {
			msg = GenericFailure
		}
		item.Error = msg
		item.Result = nil
		item.SceneUsed = ""
	default:
		return domain.Item{}, s.invalid(id, from, to)
	}

	item.Status = to
	item.UpdatedAt = s.now()
	return item.Clone(), nil
}

func (s *Store) invalid(id string, from, to domain.Status) error {
	return fmt.Errorf("session: item %s %s -> %s: %w", id, from, to, domain.ErrInvalidTransition)
}

// Begin moves the item into processing and returns a snapshot of it.
func (s *Store) Begin(id string) (domain.Item, error) {
	return s.Transition(id, domain.StatusProcessing, domain.Payload{})
}

// Claim moves an idle or error item into processing. Unlike Begin it
// refuses done items, so a batch run never re-rolls a result that was
// produced after its snapshot was taken.
func (s *Store) Claim(id string) (domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return domain.Item{}, fmt.Errorf("session: item %s: %w", id, domain.ErrNotFound)
	}
	switch {
	case item.Status == domain.StatusProcessing:
		return domain.Item{}, fmt.Errorf("session: item %s: %w", id, domain.ErrItemBusy)
	case !item.Status.Runnable():
		return domain.Item{}, s.invalid(id, item.Status, domain.StatusProcessing)
	}
	return s.apply(item, domain.StatusProcessing, domain.Payload{})
}

// Complete records a successful result.
func (s *Store) Complete(id string, result domain.Image, scene domain.SceneID) (domain.Item, error) {
	return s.Transition(id, domain.StatusDone, domain.Payload{Result: &result, Scene: scene})
}

// Fail records a pipeline failure.
func (s *Store) Fail(id, message string) (domain.Item, error) {
	return s.Transition(id, domain.StatusError, domain.Payload{Error: message})
}

// Eligible returns, in insertion order, the ids that a batch run may pick
// up right now. An empty ids slice considers every item.
func (s *Store) Eligible(ids []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var wanted map[string]struct{}
	if len(ids) > 0 {
		wanted = make(map[string]struct{}, len(ids))
		for _, id := range ids {
			wanted[id] = struct{}{}
		}
	}
	var out []string
	for _, id := range s.order {
		if wanted != nil {
			if _, ok := wanted[id]; !ok {
				continue
			}
		}
		if s.items[id].Status.Runnable() {
			out = append(out, id)
		}
	}
	return out
}

// Get returns a copy of the item.
func (s *Store) Get(id string) (domain.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return domain.Item{}, false
	}
	return item.Clone(), true
}

// List returns copies of all items in insertion order.
func (s *Store) List() []domain.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Item, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id].Clone())
	}
	return out
}

// Completed returns the done items in insertion order.
func (s *Store) Completed() []domain.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Item
	for _, id := range s.order {
		if item := s.items[id]; item.Status == domain.StatusDone {
			out = append(out, item.Clone())
		}
	}
	return out
}

// HasCompleted reports whether at least one item is done.
func (s *Store) HasCompleted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.Status == domain.StatusDone {
			return true
		}
	}
	return false
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Remaining reports how many more items fit.
func (s *Store) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := s.maxItems - len(s.order); n > 0 {
		return n
	}
	return 0
}
