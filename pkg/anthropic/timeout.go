package anthropic

import (
	"context"
	"time"
)

// Timebound wraps a Client with a per-call deadline so one slow model
// call cannot eat a whole job budget.
func Timebound(c Client, timeout time.Duration) Client {
	return &timebound{inner: c, timeout: timeout}
}

type timebound struct {
	inner   Client
	timeout time.Duration
}

func (t *timebound) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.CreateMessage(ctx, req)
}
