package webclient

import "context"

// WebClient executes HTTP-shaped requests. Backends differ in transport
// (plain net/http or a headless browser) but share this contract.
type WebClient interface {
	Do(ctx context.Context, req *Request) (*Response, error)

	// Get is a convenience wrapper around Do for a plain GET.
	Get(ctx context.Context, url string) (*Response, error)

	Close() error
}
