package device

import "sync"

// DefaultFramePoolSize is the number of preview buffers kept in rotation
const DefaultFramePoolSize = 3

// FramePool holds a fixed set of preview frame buffers. The buffer length is
// fixed by the first call to Buffers and stays until Reset.
type FramePool struct {
	mu      sync.Mutex
	size    int
	length  int
	buffers [][]byte
}

func NewFramePool(size int) *FramePool {
	if size <= 0 {
		size = DefaultFramePoolSize
	}
	return &FramePool{size: size}
}

// Buffers returns the pool's buffers, allocating them with length bytes each
// on first use. Later calls return the same buffers whatever length is passed.
func (p *FramePool) Buffers(length int) [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.buffers == nil {
		if length <= 0 {
			return nil
		}
		p.length = length
		p.buffers = make([][]byte, p.size)
		for i := range p.buffers {
			p.buffers[i] = make([]byte, length)
		}
	}

	result := make([][]byte, len(p.buffers))
	copy(result, p.buffers)
	return result
}

// Length returns the byte length of each buffer, 0 before first use
func (p *FramePool) Length() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.length
}

func (p *FramePool) Size() int {
	return p.size
}

// Reset drops the buffers so the next Buffers call allocates anew
func (p *FramePool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buffers = nil
	p.length = 0
}

// FrameQueue is the driver side of the buffer exchange. Buffers handed in by
// AddFrameBuffer wait here until a frame is written into them.
type FrameQueue struct {
	mu      sync.Mutex
	buffers [][]byte
	handler FrameHandler
}

func (q *FrameQueue) SetHandler(handler FrameHandler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handler = handler
}

func (q *FrameQueue) Add(buffer []byte) {
	if buffer == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.buffers = append(q.buffers, buffer[:cap(buffer)])
}

func (q *FrameQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.buffers = nil
}

func (q *FrameQueue) Available() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buffers)
}

// Deliver copies data into the next free buffer and hands it to the handler.
// The frame is dropped when no buffer is free or no handler is set.
func (q *FrameQueue) Deliver(data []byte) bool {
	q.mu.Lock()
	if q.handler == nil || len(q.buffers) == 0 {
		q.mu.Unlock()
		return false
	}
	buffer := q.buffers[0]
	q.buffers = q.buffers[1:]
	handler := q.handler
	q.mu.Unlock()

	n := copy(buffer, data)
	handler(buffer[:n])
	return true
}
