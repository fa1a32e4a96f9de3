//go:build !linux

// ABOUTME: Serial dialer stub for platforms without termios support here
// ABOUTME: Reports a clear error instead of failing to build
package transport

import (
	"context"
	"fmt"
	"io"
	"runtime"
)

// DefaultBaudRate is used when the configuration leaves it unset
const DefaultBaudRate = 115200

func dialSerial(ctx context.Context, cfg Config) (io.WriteCloser, error) {
	return nil, fmt.Errorf("serial transport is not supported on %s", runtime.GOOS)
}
