package core

import (
	"fmt"
	"time"
)

var (
	// DefaultRetryCount bounds retry-until loops unless configured.
	DefaultRetryCount = 3

	// DefaultRetryInterval is the sleep between retry attempts.
	DefaultRetryInterval = 3 * time.Second
)

// Config is the per-scope configuration record.  Exactly one live
// Config exists per engine; callonce snapshots it (Copy) so later
// mutation of the calling scope cannot affect already-cached results.
type Config struct {
	// Headers and Cookies are scope-level defaults merged into
	// every request.  Either may be a function Variable, evaluated
	// lazily per attempt.
	Headers *Variable
	Cookies *Variable

	RetryCount    int
	RetryInterval time.Duration

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	PrintEnabled bool

	// ClientFactory builds the HTTP client collaborator for an
	// engine.  web.NewClient is the usual choice.
	ClientFactory func(*Engine) HTTPClient

	// RuntimeFactory builds a fresh scripting runtime.  Every
	// engine owns its own runtime because a runtime is bound to one
	// execution context.
	RuntimeFactory func() ScriptRuntime

	// AfterScenario and AfterFeature are optional function hooks.
	AfterScenario *Variable
	AfterFeature  *Variable
}

// NewConfig returns a Config with the stock defaults.
func NewConfig() *Config {
	return &Config{
		Headers:       NullVariable,
		Cookies:       NullVariable,
		RetryCount:    DefaultRetryCount,
		RetryInterval: DefaultRetryInterval,
		PrintEnabled:  true,
		AfterScenario: NullVariable,
		AfterFeature:  NullVariable,
	}
}

// Copy snapshots the Config.
func (c *Config) Copy() *Config {
	clone := *c
	return &clone
}

// Configure applies one configuration key.  The returned bool reports
// whether the HTTP client needs a ConfigChanged notification (some keys
// only matter to the engine).
func (c *Config) Configure(key string, v *Variable) (bool, error) {
	switch key {
	case "headers":
		c.Headers = v
		return false, nil
	case "cookies":
		c.Cookies = v
		return false, nil
	case "retry":
		m := v.Map()
		if m == nil {
			return false, fmt.Errorf("retry config must be a map: %s", v)
		}
		if count, have := m["count"]; have {
			c.RetryCount = NewVariable(count).AsInt()
		}
		if interval, have := m["interval"]; have {
			c.RetryInterval = time.Duration(NewVariable(interval).AsInt()) * time.Millisecond
		}
		return false, nil
	case "connectTimeout":
		c.ConnectTimeout = time.Duration(v.AsInt()) * time.Millisecond
		return true, nil
	case "readTimeout":
		c.ReadTimeout = time.Duration(v.AsInt()) * time.Millisecond
		return true, nil
	case "printEnabled":
		c.PrintEnabled = v.IsTrue()
		return false, nil
	case "afterScenario":
		c.AfterScenario = v
		return false, nil
	case "afterFeature":
		c.AfterFeature = v
		return false, nil
	default:
		// Unknown keys are assumed to belong to the transport
		// (ssl, proxy, and friends), which owns their meaning.
		return true, nil
	}
}
