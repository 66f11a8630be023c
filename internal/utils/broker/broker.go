// Package broker fans in-process messages out to topic subscribers.
package broker

import (
	"sync"

	"github.com/rs/zerolog/log"
)

const defaultBuffer = 16

type Broker struct {
	subscribers map[string][]chan interface{}
	mu          sync.RWMutex
	buffer      int
}

func NewBroker() *Broker {
	return NewBrokerWithBuffer(defaultBuffer)
}

// NewBrokerWithBuffer sets the per-subscriber queue length.
func NewBrokerWithBuffer(buffer int) *Broker {
	if buffer < 1 {
		buffer = 1
	}
	return &Broker{
		subscribers: make(map[string][]chan interface{}),
		buffer:      buffer,
	}
}

func (b *Broker) Subscribe(topic string) <-chan interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan interface{}, b.buffer)
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	return ch
}

func (b *Broker) Unsubscribe(topic string, ch <-chan interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if chans, ok := b.subscribers[topic]; ok {
		for i, c := range chans {
			if c == ch {
				b.subscribers[topic] = append(chans[:i], chans[i+1:]...)
				close(c)
				break
			}
		}
	}
}

// Publish never blocks: a subscriber whose queue is full misses the message. It
// returns the number of subscribers that received it.
func (b *Broker) Publish(topic string, msg interface{}) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	delivered := 0
	for _, ch := range b.subscribers[topic] {
		select {
		case ch <- msg:
			delivered++
		default:
			log.Warn().Str("topic", topic).Msg("Dropping message for slow subscriber")
		}
	}
	return delivered
}

// Subscribers reports how many subscribers a topic has.
func (b *Broker) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[topic])
}
