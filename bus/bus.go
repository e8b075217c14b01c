// bus.go
//
// In-process message bus with MQTT style topic matching. Topics are
// slices of comparable tokens, subscriptions may use single level and
// multi level wildcards, publishes never block: when a subscriber's
// queue is full the oldest message is dropped and counted.
package bus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// Topic is an ordered list of comparable tokens.
type Topic []any

// T builds a Topic from parts. Panics if a part is not comparable,
// since such tokens could never match a subscription.
func T(parts ...any) Topic {
	for _, p := range parts {
		_ = p == p
	}
	return Topic(parts)
}

func (t Topic) Len() int { return len(t) }

func (t Topic) At(i int) any { return t[i] }

// Equal reports exact token equality.
func (t Topic) Equal(other Topic) bool {
	if len(t) != len(other) {
		return false
	}
	for i := range t {
		if t[i] != other[i] {
			return false
		}
	}
	return true
}

// Message is a single bus datagram. ReplyTo is set on requests and
// names the topic the responder should publish replies to.
type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
	ReplyTo  Topic
}

// Subscription receives messages matching one pattern.
type Subscription struct {
	pattern Topic
	ch      chan *Message
	closed  bool
	dropped atomic.Uint32
}

// Channel is the receive side. It is closed by Unsubscribe.
func (s *Subscription) Channel() <-chan *Message { return s.ch }

// Pattern returns the subscribed topic pattern.
func (s *Subscription) Pattern() Topic { return s.pattern }

// Dropped returns and resets the count of messages lost to a full
// queue since the last call.
func (s *Subscription) Dropped() int {
	return int(s.dropped.Swap(0))
}

// Bus routes messages between connections.
type Bus struct {
	mu       sync.Mutex
	queueLen int
	single   string
	multi    string
	subs     []*Subscription
	retained []*Message
	replySeq atomic.Uint32
}

// NewBus creates a bus whose subscription queues hold queueLen
// messages. The optional wildcards override the single and multi
// level wildcard tokens, which default to "+" and "#".
func NewBus(queueLen int, wildcards ...string) *Bus {
	if queueLen <= 0 {
		queueLen = 8
	}
	b := &Bus{queueLen: queueLen, single: "+", multi: "#"}
	if len(wildcards) > 0 {
		b.single = wildcards[0]
	}
	if len(wildcards) > 1 {
		b.multi = wildcards[1]
	}
	return b
}

// NewMessage builds a message ready for Publish.
func (b *Bus) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

// NewConnection opens a named connection. The name only serves
// debugging and reply topic generation.
func (b *Bus) NewConnection(name string) *Connection {
	return &Connection{bus: b, name: name}
}

// match walks pattern against topic honoring the wildcard tokens. A
// trailing multi level wildcard also matches its parent level.
func (b *Bus) match(pattern, topic Topic) bool {
	pi, ti := 0, 0
	for pi < len(pattern) {
		tok, isString := pattern[pi].(string)
		if isString && tok == b.multi {
			return pi == len(pattern)-1
		}
		if ti >= len(topic) {
			return false
		}
		if isString && tok == b.single {
			pi++
			ti++
			continue
		}
		if pattern[pi] != topic[ti] {
			return false
		}
		pi++
		ti++
	}
	return ti == len(topic)
}

func (b *Bus) subscribe(pattern Topic) *Subscription {
	sub := &Subscription{pattern: pattern, ch: make(chan *Message, b.queueLen)}
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	// Hand retained matches to the new subscriber.
	for _, m := range b.retained {
		if b.match(pattern, m.Topic) {
			deliver(sub, m)
		}
	}
	b.mu.Unlock()
	return sub
}

func (b *Bus) unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub.closed {
		return
	}
	for i, s := range b.subs {
		if s == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			break
		}
	}
	sub.closed = true
	close(sub.ch)
}

func (b *Bus) publish(msg *Message) {
	if msg == nil {
		return
	}
	b.mu.Lock()
	if msg.Retained {
		b.retain(msg)
	}
	for _, sub := range b.subs {
		if b.match(sub.pattern, msg.Topic) {
			deliver(sub, msg)
		}
	}
	b.mu.Unlock()
}

// retain stores msg as its topic's retained message. A nil payload
// clears the slot.
func (b *Bus) retain(msg *Message) {
	for i, m := range b.retained {
		if m.Topic.Equal(msg.Topic) {
			if msg.Payload == nil {
				b.retained = append(b.retained[:i], b.retained[i+1:]...)
			} else {
				b.retained[i] = msg
			}
			return
		}
	}
	if msg.Payload != nil {
		b.retained = append(b.retained, msg)
	}
}

// deliver enqueues without blocking, dropping the oldest queued
// message when full. Callers hold the bus lock.
func deliver(sub *Subscription, msg *Message) {
	if sub.closed {
		return
	}
	select {
	case sub.ch <- msg:
		return
	default:
	}
	select {
	case <-sub.ch:
		sub.dropped.Add(1)
	default:
	}
	select {
	case sub.ch <- msg:
	default:
	}
}

// Connection is one client's handle on the bus.
type Connection struct {
	bus  *Bus
	name string
}

func (c *Connection) Name() string { return c.name }

// NewMessage builds a message ready for Publish.
func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(topic, payload, retained)
}

// Subscribe registers interest in a topic pattern. Retained messages
// matching the pattern are delivered immediately.
func (c *Connection) Subscribe(pattern Topic) *Subscription {
	return c.bus.subscribe(pattern)
}

// Unsubscribe removes the subscription and closes its channel.
func (c *Connection) Unsubscribe(sub *Subscription) {
	c.bus.unsubscribe(sub)
}

// Publish sends msg to all matching subscribers.
func (c *Connection) Publish(msg *Message) {
	c.bus.publish(msg)
}

// Reply publishes a response to a request's ReplyTo topic. Requests
// without a ReplyTo are dropped.
func (c *Connection) Reply(req *Message, payload any, retained bool) {
	if req == nil || len(req.ReplyTo) == 0 {
		return
	}
	c.bus.publish(&Message{Topic: req.ReplyTo, Payload: payload, Retained: retained})
}

// Request publishes msg with a fresh ReplyTo topic and returns the
// subscription on which replies arrive. The caller unsubscribes when
// done.
func (c *Connection) Request(msg *Message) *Subscription {
	seq := c.bus.replySeq.Add(1)
	msg.ReplyTo = Topic{"$reply", c.name, seq}
	sub := c.bus.subscribe(msg.ReplyTo)
	c.bus.publish(msg)
	return sub
}

// ErrClosed reports a reply channel closed before any reply arrived.
var ErrClosed = errors.New("bus: subscription closed")

// RequestWait performs a request and waits for the first reply.
func (c *Connection) RequestWait(ctx context.Context, msg *Message) (*Message, error) {
	sub := c.Request(msg)
	defer c.Unsubscribe(sub)
	select {
	case reply, ok := <-sub.ch:
		if !ok {
			return nil, ErrClosed
		}
		return reply, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
