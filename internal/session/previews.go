package session

import (
	"sync"

	"github.com/google/uuid"

	"studio/internal/domain"
)

// PreviewRegistry hands out display handles for source payloads.
type PreviewRegistry interface {
	Register(img domain.Image) string
	Release(handle string)
}

// MemoryPreviews keeps preview payloads in memory until released.
type MemoryPreviews struct {
	mu       sync.RWMutex
	previews map[string]domain.Image
}

func NewMemoryPreviews() *MemoryPreviews {
	return &MemoryPreviews{previews: make(map[string]domain.Image)}
}

func (p *MemoryPreviews) Register(img domain.Image) string {
	handle := uuid.NewString()
	p.mu.Lock()
	p.previews[handle] = img
	p.mu.Unlock()
	return handle
}

// Release drops the payload behind handle. Unknown handles are ignored.
func (p *MemoryPreviews) Release(handle string) {
	p.mu.Lock()
	delete(p.previews, handle)
	p.mu.Unlock()
}

// Lookup returns the payload registered under handle.
func (p *MemoryPreviews) Lookup(handle string) (domain.Image, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	img, ok := p.previews[handle]
	return img, ok
}

// Len reports how many handles are live.
func (p *MemoryPreviews) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.previews)
}
