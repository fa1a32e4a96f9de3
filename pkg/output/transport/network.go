// ABOUTME: TCP, UDP and pipe dialers for stream transports
// ABOUTME: Network connections honour the connect context; pipes open a path for writing
package transport

import (
	"context"
	"io"
	"net"
	"os"
)

func dialNetwork(network string) dialFunc {
	return func(ctx context.Context, cfg Config) (io.WriteCloser, error) {
		var d net.Dialer
		return d.DialContext(ctx, network, cfg.Address)
	}
}

// dialPipe opens a named pipe or file for writing. Opening a FIFO blocks
// until a reader appears, so the open races the context.
func dialPipe(ctx context.Context, cfg Config) (io.WriteCloser, error) {
	type result struct {
		f   *os.File
		err error
	}
	opened := make(chan result, 1)
	go func() {
		f, err := os.OpenFile(cfg.Address, os.O_WRONLY|os.O_APPEND, 0)
		opened <- result{f, err}
	}()

	select {
	case r := <-opened:
		if r.err != nil {
			return nil, r.err
		}
		return r.f, nil
	case <-ctx.Done():
		go func() {
			if r := <-opened; r.f != nil {
				r.f.Close()
			}
		}()
		return nil, ctx.Err()
	}
}
