// Package llm provides the chat completion clients used to curate, rewrite,
// and score stories.
//
// Client talks to OpenRouter over plain HTTP and retries on 408/429/5xx and
// network timeouts with exponential backoff (base 1s, max 10s, 5 attempts).
// LocalClient targets any OpenAI-compatible server through openai-go. Both
// satisfy the same Complete(ctx, Request) method so callers can switch
// providers from configuration.
//
// DecodeJSON strips code fences and surrounding prose before decoding the
// JSON payloads some prompts ask for.
package llm
