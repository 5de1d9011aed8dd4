// Package feed is the delivery boundary between the reporter and the
// outside world. Every transport failure is converted to a DeliveryResult
// right here; nothing below this package surfaces as a Go error to the
// training loop.
package feed

import (
	"context"

	"trainfeed/internal/transport"
	"trainfeed/pkg/chunk"
	"trainfeed/pkg/logx"
)

const (
	// MaxPostLen is the feed's per-post character budget.
	MaxPostLen = 140
	// ContinuationMarker joins the pieces of a chunked message.
	ContinuationMarker = " [...] "
)

// DeliveryResult reports the outcome of one post attempt. It is a value,
// never an error: a notification outage must not stop training.
type DeliveryResult struct {
	OK         bool
	HTTPStatus int    // 0 when no response was received
	Detail     string // error text or response body on failure
}

// Channel wraps a transport with recipient targeting and failure handling.
// It is a long-lived singleton per run and holds no metric state.
type Channel struct {
	tr         transport.Transport
	recipients []transport.Recipient
	log        logx.Logger
}

func NewChannel(tr transport.Transport, recipients []transport.Recipient, log logx.Logger) *Channel {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Channel{tr: tr, recipients: recipients, log: log}
}

// PostText posts one message as-is. The caller is responsible for length;
// this is the atomic single-post primitive and performs no splitting.
func (c *Channel) PostText(ctx context.Context, msg string) DeliveryResult {
	return c.post(ctx, transport.Update{Text: msg, Recipients: c.recipients})
}

// PostTextLong chunks msg at the feed's length budget and posts the chunks
// in reverse logical order, so a newest-first feed reads top to bottom.
// Every chunk is attempted regardless of earlier failures; the returned
// results are in posting order, one per chunk.
func (c *Channel) PostTextLong(ctx context.Context, msg string) []DeliveryResult {
	chunks, err := chunk.Split(msg, MaxPostLen, ContinuationMarker)
	if err != nil {
		// Unreachable with the fixed marker, but keep the no-raise contract.
		c.log.Error("message chunking failed", logx.Err(err))
		return []DeliveryResult{{Detail: err.Error()}}
	}

	results := make([]DeliveryResult, 0, len(chunks))
	for i := len(chunks) - 1; i >= 0; i-- {
		res := c.post(ctx, transport.Update{Text: chunks[i], Recipients: c.recipients})
		results = append(results, res)
	}
	return results
}

// PostImage uploads the image and posts a follow-up update referencing it.
// A failed upload skips the follow-up post. A failed post after a
// successful upload is reported as-is; the service offers no rollback.
func (c *Channel) PostImage(ctx context.Context, image []byte, caption string) DeliveryResult {
	ref, resp, err := c.tr.UploadMedia(ctx, image)
	if err != nil {
		c.log.Error("media upload failed", logx.Err(err))
		return DeliveryResult{Detail: err.Error()}
	}
	if !resp.OK() {
		c.log.Error("media upload rejected",
			logx.Int("http", resp.StatusCode), logx.String("body", resp.Body))
		return DeliveryResult{HTTPStatus: resp.StatusCode, Detail: resp.Body}
	}

	return c.post(ctx, transport.Update{Text: caption, Media: ref, Recipients: c.recipients})
}

// post is the single conversion point from transport outcomes to
// DeliveryResult.
func (c *Channel) post(ctx context.Context, up transport.Update) DeliveryResult {
	resp, err := c.tr.PostUpdate(ctx, up)
	if err != nil {
		c.log.Error("post failed", logx.Err(err), logx.Int("len", len(up.Text)))
		return DeliveryResult{Detail: err.Error()}
	}
	if !resp.OK() {
		c.log.Error("post rejected",
			logx.Int("http", resp.StatusCode), logx.String("body", resp.Body))
		return DeliveryResult{HTTPStatus: resp.StatusCode, Detail: resp.Body}
	}
	return DeliveryResult{OK: true, HTTPStatus: resp.StatusCode}
}
