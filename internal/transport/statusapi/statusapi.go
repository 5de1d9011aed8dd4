// Package statusapi posts updates to a Twitter-style REST status API over
// HTTP: media/upload for images, statuses/update for the post itself.
package statusapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"trainfeed/internal/creds"
	"trainfeed/internal/transport"
	"trainfeed/pkg/logx"
)

type Config struct {
	// Timeout bounds every HTTP call. Defaults to 10s.
	Timeout time.Duration
	// RatePerSec caps outbound posts. Defaults to 1/s.
	RatePerSec int
}

// Client implements transport.Transport against a status API.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	log     logx.Logger
}

func New(cfg Config, cr creds.Credentials, log logx.Logger) (*Client, error) {
	if err := cr.ValidateStatusAPI(); err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 1
	}

	http := resty.New().
		SetBaseURL(strings.TrimRight(cr.StatusAPI.BaseURL, "/")).
		SetAuthToken(cr.StatusAPI.BearerToken).
		SetTimeout(timeout)

	return &Client{
		http:    http,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		log:     log,
	}, nil
}

func (c *Client) PostUpdate(ctx context.Context, up transport.Update) (transport.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return transport.Response{}, err
	}

	form := map[string]string{"status": up.Text}
	if len(up.Recipients) > 0 {
		ids := make([]string, len(up.Recipients))
		for i, r := range up.Recipients {
			ids[i] = string(r)
		}
		form["user_id"] = strings.Join(ids, ",")
	}
	if up.Media != "" {
		form["media_ids"] = string(up.Media)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(form).
		Post("/statuses/update.json")
	if err != nil {
		return transport.Response{}, fmt.Errorf("statusapi: post update: %w", err)
	}

	out := transport.Response{StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	c.log.Debug("status update posted",
		logx.Int("http", out.StatusCode),
		logx.Int("recipients", len(up.Recipients)),
		logx.Bool("media", up.Media != ""))
	return out, nil
}

func (c *Client) UploadMedia(ctx context.Context, data []byte) (transport.MediaRef, transport.Response, error) {
	if len(data) == 0 {
		return "", transport.Response{}, errors.New("statusapi: empty media payload")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", transport.Response{}, err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("media", "plot.png", bytes.NewReader(data)).
		Post("/media/upload.json")
	if err != nil {
		return "", transport.Response{}, fmt.Errorf("statusapi: upload media: %w", err)
	}

	out := transport.Response{StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	if !out.OK() {
		return "", out, nil
	}

	ref, err := parseMediaID(resp.Body())
	if err != nil {
		return "", out, fmt.Errorf("statusapi: %w", err)
	}
	c.log.Debug("media uploaded", logx.Int("bytes", len(data)), logx.String("media_id", string(ref)))
	return ref, out, nil
}

func parseMediaID(body []byte) (transport.MediaRef, error) {
	var payload struct {
		MediaIDString string `json:"media_id_string"`
		MediaID       int64  `json:"media_id"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("malformed upload response: %w", err)
	}
	if payload.MediaIDString != "" {
		return transport.MediaRef(payload.MediaIDString), nil
	}
	if payload.MediaID != 0 {
		return transport.MediaRef(fmt.Sprintf("%d", payload.MediaID)), nil
	}
	return "", errors.New("upload response missing media id")
}
