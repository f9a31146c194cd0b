package conversation

import (
	"sync"

	"github.com/capitalize-ai/learning-assistant/internal/model"
)

// DefaultGreeting opens every fresh transcript.
const DefaultGreeting = "👋 Hi! I'm your learning assistant. Ask me anything about your courses, or type /help to see what I can do."

// subscriberBuffer bounds each live feed. A subscriber that falls this far
// behind misses updates rather than stalling the chat.
const subscriberBuffer = 64

// Observer is told about every appended message.
type Observer func(msg model.Message)

// Transcript is the ordered, append-only list of visible messages. It is
// replaced wholesale on new chat, conversation switch and recovery.
type Transcript struct {
	mu       sync.RWMutex
	messages []model.Message
	subs     map[int]chan model.MessageEvent
	nextSub  int
	observer Observer
}

// NewTranscript creates a transcript holding only the greeting.
func NewTranscript(greeting string) *Transcript {
	t := &Transcript{subs: make(map[int]chan model.MessageEvent)}
	if greeting != "" {
		t.messages = []model.Message{model.NewAssistantMessage(greeting)}
	}
	return t
}

// SetObserver installs fn to see every append. Resets are not observed.
func (t *Transcript) SetObserver(fn Observer) {
	t.mu.Lock()
	t.observer = fn
	t.mu.Unlock()
}

// Append adds msg to the end of the transcript.
func (t *Transcript) Append(msg model.Message) {
	t.mu.Lock()
	t.messages = append(t.messages, msg)
	t.broadcast(model.MessageEvent{Message: msg})
	observer := t.observer
	t.mu.Unlock()

	if observer != nil {
		observer(msg)
	}
}

// Reset replaces the whole transcript with msgs. Subscribers receive the
// replacement as a single event.
func (t *Transcript) Reset(msgs ...model.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.messages = append([]model.Message(nil), msgs...)
	t.broadcast(model.MessageEvent{
		Reset:    true,
		Messages: append([]model.Message(nil), t.messages...),
	})
}

// Messages returns a copy of the transcript.
func (t *Transcript) Messages() []model.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]model.Message(nil), t.messages...)
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Subscribers returns the number of live feeds.
func (t *Transcript) Subscribers() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}

// Subscribe returns a live feed of appends and resets and a func that ends
// the subscription.
func (t *Transcript) Subscribe() (<-chan model.MessageEvent, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextSub
	t.nextSub++
	ch := make(chan model.MessageEvent, subscriberBuffer)
	t.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, id)
			close(ch)
			t.mu.Unlock()
		})
	}
}

// broadcast must be called with mu held.
func (t *Transcript) broadcast(ev model.MessageEvent) {
	for _, ch := range t.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
