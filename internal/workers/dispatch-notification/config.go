package dispatchnotification

import "time"

// Config carries the worker-level settings for dispatch command handling.
type Config struct {
	Name    string
	Timeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Name:    "dispatch-notification",
		Timeout: 120 * time.Second,
	}
}
