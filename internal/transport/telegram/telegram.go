// Package telegram adapts the abstract posting transport onto Telegram.
// Recipients are chat IDs; an empty recipient list posts to the configured
// broadcast chat. Telegram has no separate media-upload step, so uploads
// are staged in-adapter and attached when the update is posted.
package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"trainfeed/internal/creds"
	"trainfeed/internal/transport"
	"trainfeed/pkg/logx"
)

type Config struct {
	// Offline skips the initial getMe probe; used by tests.
	Offline bool
}

type Adapter struct {
	bot       *tele.Bot
	broadcast int64
	log       logx.Logger

	mu     sync.Mutex
	staged map[transport.MediaRef][]byte
	seq    int
}

func New(cfg Config, cr creds.Credentials, log logx.Logger) (*Adapter, error) {
	if err := cr.ValidateTelegram(); err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	b, err := tele.NewBot(tele.Settings{
		Token:   cr.Telegram.Token,
		Offline: cfg.Offline,
		Poller:  &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}

	return &Adapter{
		bot:       b,
		broadcast: cr.Telegram.BroadcastChatID,
		log:       log,
		staged:    map[transport.MediaRef][]byte{},
	}, nil
}

// UploadMedia stages the image bytes and hands back a synthetic reference.
// The actual Telegram upload happens when PostUpdate sends the photo.
func (a *Adapter) UploadMedia(ctx context.Context, data []byte) (transport.MediaRef, transport.Response, error) {
	if err := ctx.Err(); err != nil {
		return "", transport.Response{}, err
	}
	if len(data) == 0 {
		return "", transport.Response{}, errors.New("telegram: empty media payload")
	}

	a.mu.Lock()
	a.seq++
	ref := transport.MediaRef("staged-" + strconv.Itoa(a.seq))
	a.staged[ref] = data
	a.mu.Unlock()

	return ref, transport.Response{StatusCode: 200}, nil
}

func (a *Adapter) PostUpdate(ctx context.Context, up transport.Update) (transport.Response, error) {
	if err := ctx.Err(); err != nil {
		return transport.Response{}, err
	}

	chats, err := a.targets(up.Recipients)
	if err != nil {
		return transport.Response{}, err
	}

	var media []byte
	if up.Media != "" {
		a.mu.Lock()
		media = a.staged[up.Media]
		a.mu.Unlock()
		if media == nil {
			return transport.Response{}, fmt.Errorf("telegram: unknown media ref %q", up.Media)
		}
	}

	for _, chatID := range chats {
		chat := &tele.Chat{ID: chatID}
		if media != nil {
			photo := &tele.Photo{
				File:    tele.FromReader(bytes.NewReader(media)),
				Caption: up.Text,
			}
			_, err = a.bot.Send(chat, photo)
		} else {
			_, err = a.bot.Send(chat, up.Text)
		}
		if err != nil {
			return transport.Response{}, fmt.Errorf("telegram: send to %d: %w", chatID, err)
		}
	}

	// Staged bytes are only needed once; drop them after a full delivery.
	if up.Media != "" {
		a.mu.Lock()
		delete(a.staged, up.Media)
		a.mu.Unlock()
	}

	a.log.Debug("telegram update sent", logx.Int("chats", len(chats)), logx.Bool("media", media != nil))
	return transport.Response{StatusCode: 200}, nil
}

func (a *Adapter) targets(recipients []transport.Recipient) ([]int64, error) {
	if len(recipients) == 0 {
		if a.broadcast == 0 {
			return nil, errors.New("telegram: no recipients and no broadcast chat configured")
		}
		return []int64{a.broadcast}, nil
	}
	out := make([]int64, 0, len(recipients))
	for _, r := range recipients {
		id, err := strconv.ParseInt(string(r), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("telegram: recipient %q is not a chat id: %w", r, err)
		}
		out = append(out, id)
	}
	return out, nil
}
