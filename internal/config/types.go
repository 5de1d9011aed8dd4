// Package config loads and watches the trainfeed configuration file
// (YAML or JSON). Decoding is strict: unknown fields are a load error, so
// typos surface at startup instead of silently disabling a subscription.
package config

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Job       JobConfig       `json:"job"`
	Transport TransportConfig `json:"transport"`

	// Subscriptions list what gets reported and how often.
	Subscriptions []SubscriptionConfig `json:"subscriptions"`

	// Recipients are direct-message targets. Empty means public broadcast.
	Recipients []string `json:"recipients,omitempty"`

	Logging  LoggingConfig   `json:"logging"`
	Dispatch *DispatchConfig `json:"dispatch,omitempty"`
}

type JobConfig struct {
	// Name is the display name shown in every status message.
	Name string `json:"name"`
}

// TransportConfig selects and tunes the posting backend.
//
// Driver values: "statusapi", "telegram", "dryrun".
type TransportConfig struct {
	Driver          string `json:"driver"`
	CredentialsFile string `json:"credentials_file,omitempty"`

	// Timeout is a Go duration string bounding each transport call.
	Timeout    string `json:"timeout,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

type SubscriptionConfig struct {
	Channel       string `json:"channel"`
	CadenceEpochs int    `json:"cadence_epochs"`
	Kind          string `json:"kind"` // "text" or "plot"
}

type LoggingConfig struct {
	Level   string            `json:"level,omitempty"`
	Console bool              `json:"console"`
	File    LoggingFileConfig `json:"file,omitempty"`
}

type LoggingFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// DispatchConfig enables the async delivery queue. When the section is
// omitted the reporter posts synchronously from the training thread.
//
// All durations are Go duration strings (e.g. "500ms", "10s").
type DispatchConfig struct {
	Enabled       bool   `json:"enabled"`
	QueueSize     int    `json:"queue_size,omitempty"`
	RatePerSec    int    `json:"rate_per_sec,omitempty"`
	SendTimeout   string `json:"send_timeout,omitempty"`
	RetryMax      int    `json:"retry_max,omitempty"`
	RetryBase     string `json:"retry_base,omitempty"`
	RetryMaxDelay string `json:"retry_max_delay,omitempty"`
}

func knownDriver(d string) bool {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case "statusapi", "telegram", "dryrun":
		return true
	}
	return false
}

// Validate checks everything that must hold before training starts.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Job.Name) == "" {
		return fmt.Errorf("config: job.name is required")
	}
	if !knownDriver(c.Transport.Driver) {
		return fmt.Errorf("config: transport.driver %q is not one of statusapi, telegram, dryrun", c.Transport.Driver)
	}
	driver := strings.ToLower(strings.TrimSpace(c.Transport.Driver))
	if driver != "dryrun" && strings.TrimSpace(c.Transport.CredentialsFile) == "" {
		return fmt.Errorf("config: transport.credentials_file is required for driver %q", driver)
	}
	if _, err := ParseDurationField("transport.timeout", c.Transport.Timeout); err != nil {
		return err
	}

	if len(c.Subscriptions) == 0 {
		return fmt.Errorf("config: at least one subscription is required")
	}
	for i, s := range c.Subscriptions {
		if strings.TrimSpace(s.Channel) == "" {
			return fmt.Errorf("config: subscriptions[%d]: channel is required", i)
		}
		if s.CadenceEpochs < 1 {
			return fmt.Errorf("config: subscriptions[%d] (%s): cadence_epochs %d (must be >= 1)", i, s.Channel, s.CadenceEpochs)
		}
		switch strings.ToLower(strings.TrimSpace(s.Kind)) {
		case "text", "plot":
		default:
			return fmt.Errorf("config: subscriptions[%d] (%s): kind %q is not one of text, plot", i, s.Channel, s.Kind)
		}
	}

	if d := c.Dispatch; d != nil {
		for _, f := range []struct{ path, raw string }{
			{"dispatch.send_timeout", d.SendTimeout},
			{"dispatch.retry_base", d.RetryBase},
			{"dispatch.retry_max_delay", d.RetryMaxDelay},
		} {
			if _, err := ParseDurationField(f.path, f.raw); err != nil {
				return err
			}
		}
		if d.RetryMax < 0 {
			return fmt.Errorf("config: dispatch.retry_max must be >= 0")
		}
	}
	return nil
}

func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}
