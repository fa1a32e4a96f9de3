// ABOUTME: mDNS service discovery for motionsync
// ABOUTME: Advertises the media endpoint and browses for network motion devices
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/mdns"
)

const (
	// EndpointService is advertised for media players to find the endpoint
	EndpointService = "_motionsync._tcp"

	// DeviceService is browsed for network devices speaking the motion line protocol
	DeviceService = "_tcode._tcp"

	browseTimeout = 3 * time.Second
)

// Config holds discovery configuration
type Config struct {
	ServiceName string
	Port        int
	Path        string // websocket path, published as a TXT record
	Logger      *slog.Logger
}

// DeviceInfo describes a discovered device
type DeviceInfo struct {
	Name      string
	Host      string
	Port      int
	Transport string // from the "transport" TXT record, "tcp" if absent
}

// Address returns host:port for the device's transport
func (d DeviceInfo) Address() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

// Manager handles mDNS operations
type Manager struct {
	config  Config
	logger  *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	devices chan DeviceInfo

	stopOnce sync.Once
	query    func(*mdns.QueryParam) error
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		config:  config,
		logger:  logger.With("component", "discovery"),
		ctx:     ctx,
		cancel:  cancel,
		devices: make(chan DeviceInfo, 10),
		query:   mdns.Query,
	}
}

// Advertise publishes the media endpoint until Stop
func (m *Manager) Advertise() error {
	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	path := m.config.Path
	if path == "" {
		path = "/"
	}

	service, err := mdns.NewMDNSService(
		m.config.ServiceName,
		EndpointService,
		"",
		"",
		m.config.Port,
		ips,
		[]string{"path=" + path},
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	m.logger.Info("advertising mDNS service",
		"name", m.config.ServiceName,
		"port", m.config.Port,
		"type", EndpointService)

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Browse searches for devices until Stop; results arrive on Devices
func (m *Manager) Browse() {
	go m.browseLoop()
}

func (m *Manager) browseLoop() {
	seen := make(map[string]bool)
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		entries := make(chan *mdns.ServiceEntry, 10)
		done := make(chan struct{})

		go func() {
			defer close(done)
			for entry := range entries {
				dev, ok := deviceFromEntry(entry)
				if !ok || seen[dev.Address()] {
					continue
				}
				seen[dev.Address()] = true
				m.logger.Info("discovered device", "name", dev.Name, "address", dev.Address(), "transport", dev.Transport)

				select {
				case m.devices <- dev:
				case <-m.ctx.Done():
				}
			}
		}()

		params := mdns.DefaultParams(DeviceService)
		params.Entries = entries
		params.Timeout = browseTimeout
		params.DisableIPv6 = true
		if err := m.query(params); err != nil {
			m.logger.Debug("mDNS query failed", "error", err)
			select {
			case <-m.ctx.Done():
			case <-time.After(browseTimeout):
			}
		}
		close(entries)
		<-done
	}
}

// Devices returns the channel of discovered devices; each address is reported once
func (m *Manager) Devices() <-chan DeviceInfo {
	return m.devices
}

// Discover browses for timeout and returns what it found
func Discover(ctx context.Context, timeout time.Duration, logger *slog.Logger) []DeviceInfo {
	m := NewManager(Config{Logger: logger})
	defer m.Stop()
	m.Browse()

	var found []DeviceInfo
	deadline := time.After(timeout)
	for {
		select {
		case dev := <-m.devices:
			found = append(found, dev)
		case <-deadline:
			return found
		case <-ctx.Done():
			return found
		}
	}
}

// Stop stops advertising and browsing
func (m *Manager) Stop() {
	m.stopOnce.Do(m.cancel)
}

func deviceFromEntry(entry *mdns.ServiceEntry) (DeviceInfo, bool) {
	if entry == nil || entry.Port == 0 {
		return DeviceInfo{}, false
	}

	var host string
	switch {
	case entry.AddrV4 != nil:
		host = entry.AddrV4.String()
	case entry.AddrV6 != nil:
		host = entry.AddrV6.String()
	case entry.Host != "":
		host = strings.TrimSuffix(entry.Host, ".")
	default:
		return DeviceInfo{}, false
	}

	dev := DeviceInfo{
		Name:      strings.TrimSuffix(entry.Name, "."+DeviceService+".local."),
		Host:      host,
		Port:      entry.Port,
		Transport: "tcp",
	}
	for _, field := range entry.InfoFields {
		if v, ok := strings.CutPrefix(field, "transport="); ok && v != "" {
			dev.Transport = v
		}
	}
	return dev, true
}

// getLocalIPs returns local IPv4 addresses
func getLocalIPs() ([]net.IP, error) {
	ips := []net.IP{}

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
				ips = append(ips, ipnet.IP)
			}
		}
	}

	return ips, nil
}
