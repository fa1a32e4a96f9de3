// ABOUTME: Auxiliary CLI commands
// ABOUTME: Lists outputs, browses for devices and manages the settings file
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/motionsync/motionsync-go/internal/discovery"
	"github.com/motionsync/motionsync-go/internal/settings"
	"github.com/motionsync/motionsync-go/pkg/output"
)

func newTargetsCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List configured outputs",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, _, err := settings.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTargets(s))
			return nil
		},
	}
}

var targetColumns = []column{
	{title: "Name"},
	{title: "Enabled"},
	{title: "Transport"},
	{title: "Address"},
	{title: "Loop"},
	{title: "Rate", numeric: true},
	{title: "Axes"},
}

var deviceColumns = []column{
	{title: "Name"},
	{title: "Transport"},
	{title: "Host"},
	{title: "Port", numeric: true},
}

func renderTargets(s *settings.Settings) string {
	rows := make([][]string, 0, len(s.Outputs))
	for _, o := range s.Outputs {
		lc := o.LoopConfig()
		axes := "all"
		if len(o.Axes) > 0 {
			axes = strings.Join(o.Axes, ",")
		}
		enabled := "yes"
		if o.Disabled {
			enabled = "no"
		}
		rate := "-"
		if lc.Discipline == output.FixedRate {
			rate = fmt.Sprintf("%.0f Hz", lc.Rate())
		}
		address := o.Address
		if address == "" {
			address = "-"
		}
		rows = append(rows, []string{
			o.Name,
			enabled,
			o.Transport,
			address,
			lc.Discipline.String() + "/" + lc.Execution.String(),
			rate,
			axes,
		})
	}
	return renderTable(targetColumns, rows)
}

func newDiscoverCommand() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Browse the local network for motion devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Browsing for %s devices for %s...\n", discovery.DeviceService, timeout)

			devices := discovery.Discover(discoverContext(cmd), timeout, nil)
			if len(devices) == 0 {
				fmt.Fprintln(out, "No devices found")
				return nil
			}

			rows := make([][]string, 0, len(devices))
			for _, d := range devices {
				rows = append(rows, []string{d.Name, d.Transport, d.Host, strconv.Itoa(d.Port)})
			}
			fmt.Fprintln(out, renderTable(deviceColumns, rows))
			return nil
		},
	}
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 5*time.Second, "How long to browse")
	return cmd
}

func newConfigCommand(configPath *string) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Settings file utilities",
	}
	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand(configPath))
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a settings file with default values",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := settings.DefaultPath()
				if err != nil {
					return fmt.Errorf("determine default settings path: %w", err)
				}
				target = defaultPath
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("settings file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check settings path: %w", err)
				}
			}

			s := settings.Default()
			if err := s.Save(target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote default settings to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the settings file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite an existing settings file")
	return cmd
}

func newConfigValidateCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the settings file",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, path, exists, err := settings.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Settings path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Settings file did not exist; defaults were used")
			}
			fmt.Fprintln(out, "Settings valid")
			return nil
		},
	}
}

// discoverContext bounds discovery by the command context when it has one
func discoverContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
