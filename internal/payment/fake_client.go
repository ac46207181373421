package payment

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FakeClient approves every charge immediately. Used in test mode and in
// package tests.
type FakeClient struct {
	mu      sync.Mutex
	intents map[string]*Intent
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		intents: make(map[string]*Intent),
	}
}

func (c *FakeClient) CreateIntent(ctx context.Context, req CreateIntentRequest) (*Intent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	intent := &Intent{
		ID:         "pi_" + uuid.NewString(),
		SchoolID:   req.SchoolID,
		ParentID:   req.ParentID,
		AmountKobo: req.AmountKobo,
		Method:     req.Method,
		Status:     StatusSucceeded,
		CreatedAt:  time.Now(),
	}
	c.intents[intent.ID] = intent

	return intent, nil
}

func (c *FakeClient) VerifyIntent(ctx context.Context, id string) (*Intent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	intent, ok := c.intents[id]
	if !ok {
		return nil, ErrIntentNotFound
	}

	return intent, nil
}

// SetStatus overrides an intent's status, used by tests to model pending and
// failed charges.
func (c *FakeClient) SetStatus(id string, status Status) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if intent, ok := c.intents[id]; ok {
		intent.Status = status
	}
}
