package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

// Provider is one external language-model service behind a narrow
// prompt-in/text-out contract. Implementations must not impose their own
// timeouts; the chain races every call against a shared deadline.
type Provider interface {
	Name() string
	Call(ctx context.Context, prompt string) (string, error)
}

type providerResult struct {
	text string
	err  error
}

// callWithTimeout races the provider call against a timer. First to settle
// wins; a losing call is abandoned, keeps running, and has its buffered
// result discarded rather than awaited again.
func callWithTimeout(ctx context.Context, p Provider, prompt string, timeout time.Duration) (string, error) {
	resultCh := make(chan providerResult, 1)

	go func() {
		text, err := p.Call(ctx, prompt)
		resultCh <- providerResult{text: text, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-resultCh:
		return res.text, res.err
	case <-timer.C:
		return "", fmt.Errorf("provider %s timed out after %s", p.Name(), timeout)
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	}
}

// ProviderChain tries an ordered list of providers and short-circuits on the
// first usable response. A timeout counts the same as a provider error.
type ProviderChain struct {
	providers []Provider
	timeout   time.Duration
}

func NewProviderChain(timeout time.Duration, providers ...Provider) *ProviderChain {
	return &ProviderChain{
		providers: providers,
		timeout:   timeout,
	}
}

func (c *ProviderChain) Len() int {
	return len(c.providers)
}

// TryEach walks the provider list in order, handing each usable response to
// handle. A non-nil error from handle (e.g. the response did not parse) counts
// the same as a provider failure and advances to the next provider. Returns
// nil as soon as handle accepts a response.
func (c *ProviderChain) TryEach(ctx context.Context, prompt string, handle func(text, provider string) error) error {
	var lastErr error

	for i, p := range c.providers {
		log.Printf("🤖 Trying provider %d/%d: %s\n", i+1, len(c.providers), p.Name())

		text, err := callWithTimeout(ctx, p, prompt, c.timeout)
		if err != nil {
			log.Printf("⚠️  Provider %s failed: %v\n", p.Name(), err)
			lastErr = err
			continue
		}

		text = strings.TrimSpace(text)
		if len(text) <= 10 {
			log.Printf("⚠️  Provider %s returned empty or trivial content\n", p.Name())
			lastErr = fmt.Errorf("provider %s returned empty content", p.Name())
			continue
		}

		if err := handle(text, p.Name()); err != nil {
			log.Printf("⚠️  Response from %s rejected: %v\n", p.Name(), err)
			lastErr = err
			continue
		}

		log.Printf("✅ Provider %s succeeded\n", p.Name())
		return nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no providers configured")
	}

	return fmt.Errorf("all providers failed: %w", lastErr)
}

// Generate returns the first non-trivial response along with the name of the
// provider that produced it.
func (c *ProviderChain) Generate(ctx context.Context, prompt string) (string, string, error) {
	var text, provider string

	err := c.TryEach(ctx, prompt, func(t, p string) error {
		text, provider = t, p
		return nil
	})
	if err != nil {
		return "", "", err
	}

	return text, provider, nil
}
