package conversation

import (
	"context"
	"sync"

	"github.com/capitalize-ai/learning-assistant/internal/intent"
	"github.com/capitalize-ai/learning-assistant/internal/legacy"
	"github.com/capitalize-ai/learning-assistant/internal/model"
)

type fakeChat struct {
	mu       sync.Mutex
	requests []model.ChatRequest
	reply    func(req *model.ChatRequest) (*model.ChatResponse, error)
}

func (f *fakeChat) Chat(ctx context.Context, req *model.ChatRequest) (*model.ChatResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, *req)
	f.mu.Unlock()
	return f.reply(req)
}

func (f *fakeChat) calls() []model.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.ChatRequest(nil), f.requests...)
}

type fakeFallback struct {
	mu      sync.Mutex
	intents []intent.Intent
	profile legacy.Profile
	out     model.Outcome
	err     error
}

func (f *fakeFallback) Execute(ctx context.Context, in intent.Intent, p legacy.Profile) (model.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.intents = append(f.intents, in)
	f.profile = p
	return f.out, f.err
}

type recordingSink struct {
	mu     sync.Mutex
	events []model.AssistantEvent
}

func (s *recordingSink) PublishEvent(ctx context.Context, ev *model.AssistantEvent) {
	s.mu.Lock()
	s.events = append(s.events, *ev)
	s.mu.Unlock()
}

func (s *recordingSink) types() []model.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.EventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}
