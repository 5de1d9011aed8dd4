// Package transport defines the outbound posting capability the feed layer
// delivers through. Concrete adapters live in subpackages; everything above
// them sees only this surface.
package transport

import "context"

// Recipient is an external identifier for a direct-message target.
// An empty recipient list means a public post to all followers.
type Recipient string

// MediaRef is an adapter-specific handle for previously uploaded media.
type MediaRef string

// Response carries the transport's status code and raw body so the caller
// can classify a delivery without the adapter deciding policy.
type Response struct {
	StatusCode int
	Body       string
}

// OK reports whether the response indicates a successful call.
func (r Response) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

// Update is one "post update" call: text, optional media reference, and
// optional direct recipients.
type Update struct {
	Text       string
	Media      MediaRef
	Recipients []Recipient
}

// Transport is the single external call surface. Implementations return an
// error only for transport-level failures (network, timeout, malformed
// response); service-level rejection is carried in Response.
type Transport interface {
	PostUpdate(ctx context.Context, up Update) (Response, error)
	UploadMedia(ctx context.Context, data []byte) (MediaRef, Response, error)
}
