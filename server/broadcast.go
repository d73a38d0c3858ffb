package server

import "sync"

// broadcaster fans out encoded frames to all connected stream clients.  Slow
// clients drop frames instead of blocking the publisher
type broadcaster struct {
	subs map[chan []byte]struct{}
	mu   sync.Mutex
}

func newBroadcaster() *broadcaster {
	return &broadcaster{
		subs: make(map[chan []byte]struct{}),
	}
}

// subscribe registers a new client and returns its frame channel
func (b *broadcaster) subscribe() chan []byte {
	ch := make(chan []byte, 2)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	return ch
}

// unsubscribe removes the client
func (b *broadcaster) unsubscribe(ch chan []byte) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

// publish sends the frame to every client with room in its buffer
func (b *broadcaster) publish(frame []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs {
		select {
		case ch <- frame:
		default:
		}
	}
}

// len returns the number of connected clients
func (b *broadcaster) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subs)
}
