// Package creds loads transport credentials from a local secret file.
//
// Credentials are an explicit typed struct read once at startup; nothing
// here deserializes opaque blobs or re-reads per call.
package creds

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

var ErrIncomplete = errors.New("creds: incomplete credentials")

// Credentials holds every secret a configured transport may need.
// Unused sections stay zero; the selected adapter validates its own part.
type Credentials struct {
	StatusAPI StatusAPICredentials `yaml:"status_api"`
	Telegram  TelegramCredentials  `yaml:"telegram"`
}

type StatusAPICredentials struct {
	BaseURL     string `yaml:"base_url"`
	BearerToken string `yaml:"bearer_token"`
}

type TelegramCredentials struct {
	Token           string `yaml:"token"`
	BroadcastChatID int64  `yaml:"broadcast_chat_id"`
}

// Store abstracts where credentials come from, so tests and future secret
// backends don't need a file on disk.
type Store interface {
	Load() (Credentials, error)
}

// FileStore reads credentials from a YAML file with strict field checking.
type FileStore struct {
	Path string
}

func (s FileStore) Load() (Credentials, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		return Credentials{}, fmt.Errorf("creds: read %s: %w", s.Path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	var c Credentials
	if err := dec.Decode(&c); err != nil {
		return Credentials{}, fmt.Errorf("creds: decode %s: %w", s.Path, err)
	}
	return c, nil
}

// ValidateStatusAPI checks the fields the status-API adapter needs.
func (c Credentials) ValidateStatusAPI() error {
	if strings.TrimSpace(c.StatusAPI.BaseURL) == "" || strings.TrimSpace(c.StatusAPI.BearerToken) == "" {
		return fmt.Errorf("%w: status_api.base_url and status_api.bearer_token are required", ErrIncomplete)
	}
	return nil
}

// ValidateTelegram checks the fields the Telegram adapter needs.
func (c Credentials) ValidateTelegram() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return fmt.Errorf("%w: telegram.token is required", ErrIncomplete)
	}
	return nil
}
