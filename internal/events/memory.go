package events

import (
	"context"
	"fmt"
	"sync"
)

const memoryBufferSize = 1000

// MemoryPublisher keeps published messages in buffered per-subject channels.
// It serves development setups and tests.
type MemoryPublisher struct {
	channels map[string]chan []byte
	closed   bool
	mu       sync.Mutex
}

// NewMemoryPublisher creates an empty in-memory publisher
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{channels: make(map[string]chan []byte)}
}

func (p *MemoryPublisher) channelLocked(subject string) (chan []byte, error) {
	if p.closed {
		return nil, fmt.Errorf("publisher closed")
	}
	ch, ok := p.channels[subject]
	if !ok {
		ch = make(chan []byte, memoryBufferSize)
		p.channels[subject] = ch
	}
	return ch, nil
}

// Publish stores a copy of data; it fails instead of blocking when the
// subject buffer is full
func (p *MemoryPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channelLocked(subject)
	if err != nil {
		return err
	}
	select {
	case ch <- dataCopy:
		return nil
	default:
		return fmt.Errorf("channel full for subject: %s", subject)
	}
}

// Messages returns the channel holding messages published to subject
func (p *MemoryPublisher) Messages(subject string) <-chan []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channelLocked(subject)
	if err != nil {
		return nil
	}
	return ch
}

// PendingCount returns the number of unread messages for subject
func (p *MemoryPublisher) PendingCount(subject string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ch, ok := p.channels[subject]; ok {
		return len(ch)
	}
	return 0
}

// Close closes every subject channel
func (p *MemoryPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	for subject, ch := range p.channels {
		close(ch)
		delete(p.channels, subject)
	}
	return nil
}
