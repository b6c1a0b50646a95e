// bus.go
package bus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// -----------------------------------------------------------------------------
// Topics
// -----------------------------------------------------------------------------

// Topic is a sequence of comparable tokens (strings or small integers).
// Subscription topics may use "+" to match one token and "#" to match the
// remainder of a topic.
type Topic []any

const (
	// WildcardOne matches exactly one token at its level.
	WildcardOne = "+"
	// WildcardRest matches the rest of the topic, including none.
	WildcardRest = "#"
)

// T builds a Topic and rejects tokens that cannot be used as map keys.
func T(tokens ...any) Topic {
	for _, tok := range tokens {
		switch tok.(type) {
		case string, int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64, bool:
		default:
			panic("bus: topic token must be a string, integer or bool")
		}
	}
	return Topic(tokens)
}

// -----------------------------------------------------------------------------
// Messages
// -----------------------------------------------------------------------------

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
	ReplyTo  Topic
}

// -----------------------------------------------------------------------------
// Subscriptions
// -----------------------------------------------------------------------------

type Subscription struct {
	topic Topic
	ch    chan *Message
	conn  *Connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// -----------------------------------------------------------------------------
// Trie
// -----------------------------------------------------------------------------

type node struct {
	children map[any]*node
	subs     []*Subscription
	retained *Message
}

func (n *node) child(tok any) *node {
	if n.children == nil {
		return nil
	}
	return n.children[tok]
}

func (n *node) ensureChild(tok any) *node {
	if n.children == nil {
		n.children = make(map[any]*node)
	}
	c, ok := n.children[tok]
	if !ok {
		c = &node{}
		n.children[tok] = c
	}
	return c
}

// -----------------------------------------------------------------------------
// Bus
// -----------------------------------------------------------------------------

type Bus struct {
	mu       sync.Mutex
	root     *node
	qLen     int
	replySeq atomic.Uint64
}

// NewBus creates a bus; queueLen is the per-subscription buffer size.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8
	}
	return &Bus{root: &node{}, qLen: queueLen}
}

func (b *Bus) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

// Publish delivers msg to every matching subscription and, for retained
// messages, stores (payload != nil) or clears (payload == nil) the value at
// the concrete topic.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.deliver(b.root, msg.Topic, msg)

	if !msg.Retained {
		return
	}
	n := b.root
	for _, tok := range msg.Topic {
		n = n.ensureChild(tok)
	}
	if msg.Payload == nil {
		n.retained = nil
	} else {
		n.retained = msg
	}
}

// deliver walks subscription patterns against a concrete topic.
func (b *Bus) deliver(n *node, rest Topic, msg *Message) {
	if len(rest) == 0 {
		for _, sub := range n.subs {
			push(sub.ch, msg)
		}
		// "a/#" also matches "a".
		if h := n.child(WildcardRest); h != nil {
			for _, sub := range h.subs {
				push(sub.ch, msg)
			}
		}
		return
	}
	if c := n.child(rest[0]); c != nil {
		b.deliver(c, rest[1:], msg)
	}
	if c := n.child(WildcardOne); c != nil {
		b.deliver(c, rest[1:], msg)
	}
	if h := n.child(WildcardRest); h != nil {
		for _, sub := range h.subs {
			push(sub.ch, msg)
		}
	}
}

// push is non-blocking; when the queue is full the oldest message is dropped.
func push(ch chan *Message, msg *Message) {
	select {
	case ch <- msg:
	default:
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- msg:
		default:
		}
	}
}

func (b *Bus) addSubscription(topic Topic, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	for _, tok := range topic {
		n = n.ensureChild(tok)
	}
	n.subs = append(n.subs, sub)

	b.sendRetained(b.root, topic, sub)
}

// sendRetained delivers stored retained messages matching a (possibly
// wildcarded) subscription pattern.
func (b *Bus) sendRetained(n *node, pattern Topic, sub *Subscription) {
	if len(pattern) == 0 {
		if n.retained != nil {
			push(sub.ch, n.retained)
		}
		return
	}
	switch pattern[0] {
	case WildcardRest:
		b.sendRetainedAll(n, sub)
	case WildcardOne:
		for _, c := range n.children {
			b.sendRetained(c, pattern[1:], sub)
		}
	default:
		if c := n.child(pattern[0]); c != nil {
			b.sendRetained(c, pattern[1:], sub)
		}
	}
}

func (b *Bus) sendRetainedAll(n *node, sub *Subscription) {
	if n.retained != nil {
		push(sub.ch, n.retained)
	}
	for _, c := range n.children {
		b.sendRetainedAll(c, sub)
	}
}

func (b *Bus) unsubscribe(topic Topic, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	var stack []*node
	for _, tok := range topic {
		c := n.child(tok)
		if c == nil {
			return
		}
		stack = append(stack, n)
		n = c
	}

	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}

	// Prune empty nodes bottom-up.
	for i := len(topic) - 1; i >= 0; i-- {
		parent := stack[i]
		child := parent.children[topic[i]]
		if child != nil && len(child.subs) == 0 && len(child.children) == 0 && child.retained == nil {
			delete(parent.children, topic[i])
		} else {
			break
		}
	}
}

// -----------------------------------------------------------------------------
// Connections
// -----------------------------------------------------------------------------

type Connection struct {
	bus  *Bus
	id   string
	mu   sync.Mutex
	subs []*Subscription
}

func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{bus: b, id: id}
}

func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(topic, payload, retained)
}

func (c *Connection) Publish(msg *Message) { c.bus.Publish(msg) }

func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan *Message, c.bus.qLen),
		conn:  c,
	}
	c.bus.addSubscription(topic, sub)
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub
}

func (c *Connection) Unsubscribe(sub *Subscription) {
	c.bus.unsubscribe(sub.topic, sub)
	c.mu.Lock()
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	close(sub.ch)
}

// Disconnect closes all subscriptions owned by this connection.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.unsubscribe(sub.topic, sub)
		close(sub.ch)
	}
}

// -----------------------------------------------------------------------------
// Request / reply
// -----------------------------------------------------------------------------

// ErrNoReply is returned by RequestWait when the context ends first.
var ErrNoReply = errors.New("bus: no reply")

// Request publishes msg with a unique ReplyTo and returns the subscription
// on which the reply will arrive. The caller owns the subscription.
func (c *Connection) Request(msg *Message) *Subscription {
	seq := c.bus.replySeq.Add(1)
	msg.ReplyTo = T("reply", c.id, int(seq))
	sub := c.Subscribe(msg.ReplyTo)
	c.bus.Publish(msg)
	return sub
}

// RequestWait publishes msg and waits for a single reply or ctx expiry.
func (c *Connection) RequestWait(ctx context.Context, msg *Message) (*Message, error) {
	sub := c.Request(msg)
	defer c.Unsubscribe(sub)
	select {
	case reply := <-sub.ch:
		return reply, nil
	case <-ctx.Done():
		return nil, ErrNoReply
	}
}

// Reply publishes payload to the request's ReplyTo topic, if any.
func (c *Connection) Reply(req *Message, payload any, retained bool) {
	if len(req.ReplyTo) == 0 {
		return
	}
	c.bus.Publish(&Message{Topic: req.ReplyTo, Payload: payload, Retained: retained})
}
