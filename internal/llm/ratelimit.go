package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedClient gates every model call on a shared limiter.
// One limiter is shared by all pipeline runs in a process.
type RateLimitedClient struct {
	Client
	limiter *rate.Limiter
}

// NewRateLimited wraps client so that each call waits for a limiter token.
// A nil limiter returns client unchanged.
func NewRateLimited(client Client, limiter *rate.Limiter) Client {
	if limiter == nil {
		return client
	}
	return &RateLimitedClient{Client: client, limiter: limiter}
}

// NewLimiter builds a limiter allowing perSecond calls with the given burst.
// A non-positive rate disables limiting.
func NewLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

func (c *RateLimitedClient) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("llm admission: %w", err)
	}
	return nil
}

// GenerateContent waits for admission, then generates text
func (c *RateLimitedClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	return c.Client.GenerateContent(ctx, prompt, tier)
}

// GenerateJSON waits for admission, then generates JSON
func (c *RateLimitedClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	return c.Client.GenerateJSON(ctx, prompt, tier)
}

// Complete waits for admission, then runs the request.
// Every further provider request of the tool loop waits for its own token.
func (c *RateLimitedClient) Complete(ctx context.Context, req Request) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	if outer := req.admit; outer != nil {
		req.admit = func(ctx context.Context) error {
			if err := outer(ctx); err != nil {
				return err
			}
			return c.wait(ctx)
		}
	} else {
		req.admit = c.wait
	}
	return c.Client.Complete(ctx, req)
}
