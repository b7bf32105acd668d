// Package statsd wraps the datadog statsd client behind a package-level sink.
// Until Init succeeds every emit goes to a NoOpClient, so callers never check.
package statsd

import (
	"errors"
	"sync/atomic"
	"time"

	ddstatsd "github.com/DataDog/datadog-go/v5/statsd"
)

type holder struct{ c ddstatsd.ClientInterface }

var client atomic.Pointer[holder]

func init() {
	client.Store(&holder{c: &ddstatsd.NoOpClient{}})
}

func Client() ddstatsd.ClientInterface {
	return client.Load().c
}

// SetClient replaces the sink. Used by tests and by Init.
func SetClient(c ddstatsd.ClientInterface) {
	if c == nil {
		c = &ddstatsd.NoOpClient{}
	}
	client.Store(&holder{c: c})
}

// Init dials the agent at address; metrics are namespaced under "simcore.".
func Init(address string, tags []string) error {
	if address == "" {
		return errors.New("statsd: address must not be empty")
	}
	opts := []ddstatsd.Option{ddstatsd.WithNamespace("simcore.")}
	if len(tags) > 0 {
		opts = append(opts, ddstatsd.WithTags(tags))
	}
	c, err := ddstatsd.New(address, opts...)
	if err != nil {
		return err
	}
	SetClient(c)
	return nil
}

// EmitSystemTime records one system invocation.
func EmitSystemTime(system string, d time.Duration) {
	_ = Client().Timing("system.update", d, []string{"system:" + system}, 1)
}

// EmitFrameTime records a whole simulation step.
func EmitFrameTime(d time.Duration, groups int) {
	c := Client()
	_ = c.Timing("frame", d, nil, 1)
	_ = c.Gauge("frame.groups", float64(groups), nil, 1)
}

// EmitFault counts a recovered system panic.
func EmitFault(system string) {
	_ = Client().Incr("system.fault", []string{"system:" + system}, 1)
}

// Close flushes and closes the current client.
func Close() error {
	return Client().Close()
}
