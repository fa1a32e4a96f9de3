// ABOUTME: Default settings values
// ABOUTME: A fresh install streams stroke and twist to a null output at 100 Hz
package settings

import (
	"github.com/motionsync/motionsync-go/pkg/axis"
	"github.com/motionsync/motionsync-go/pkg/media"
	"github.com/motionsync/motionsync-go/pkg/output"
	"github.com/motionsync/motionsync-go/pkg/output/transport"
	"github.com/motionsync/motionsync-go/pkg/provider"
	"github.com/motionsync/motionsync-go/pkg/tcode"
	"github.com/motionsync/motionsync-go/pkg/timeline"
)

const (
	defaultLogLevel    = "info"
	defaultMediaSource = "websocket"
	defaultDuration    = 600
)

// Default returns the settings used when no file exists
func Default() Settings {
	return Settings{
		Logging: Logging{Level: defaultLogLevel},
		Media: Media{
			Source:           defaultMediaSource,
			Name:             "motionsync",
			Port:             media.DefaultPort,
			Path:             media.DefaultPath,
			MDNS:             true,
			Duration:         defaultDuration,
			UpdateIntervalMS: int(provider.DefaultUpdateInterval.Milliseconds()),
		},
		Script: Script{
			DefaultAxis: timeline.DefaultScriptAxis,
			FollowMedia: true,
		},
		Axes: []Axis{
			defaultAxis(axis.L0),
			defaultAxis(axis.R0),
		},
		Outputs: []Output{
			{
				Name:        "null",
				Transport:   string(transport.KindNull),
				Discipline:  output.FixedRate.String(),
				Execution:   output.Thread.String(),
				IntervalMS:  int(output.DefaultInterval.Milliseconds()),
				Precision:   tcode.DefaultPrecision,
				DirtyFilter: ptr(true),
			},
		},
	}
}

func defaultAxis(a axis.Axis) Axis {
	return Axis{
		Name:      a.String(),
		Default:   ptr(a.DefaultValue()),
		Minimum:   0,
		Maximum:   1,
		Algorithm: timeline.Pchip.String(),
	}
}

func ptr[T any](v T) *T {
	return &v
}
