package discovery

import (
	"context"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"time"

	"github.com/stlauncher/stsync/internal/syncsdk"
	"golang.org/x/sync/errgroup"
)

// Server is a sync server that answered a health probe
type Server struct {
	URL      string        `json:"url" yaml:"url"`
	Host     string        `json:"host" yaml:"host"`
	Port     int           `json:"port" yaml:"port"`
	DataPath string        `json:"data_path" yaml:"data_path"`
	Version  string        `json:"version" yaml:"version"`
	Latency  time.Duration `json:"latency" yaml:"latency"`
}

type Scanner struct {
	config *Config
	prober *syncsdk.Prober
}

func NewScanner(cfg *Config) (*Scanner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scanner{
		config: cfg,
		prober: syncsdk.NewProber(cfg.Timeout),
	}, nil
}

func (s *Scanner) Close() {
	s.prober.Close()
}

// Scan probes the candidate hosts around this machine's LAN address on the configured ports
func (s *Scanner) Scan(ctx context.Context) ([]Server, error) {
	ip := LocalIPv4()
	hosts := Candidates(ip, *s.config)
	slog.Info("discovery scan", "local_ip", ip, "hosts", len(hosts), "ports", s.config.Ports)
	return s.ScanHosts(ctx, hosts, s.config.Ports)
}

// ScanHosts probes every host/port pair and returns the servers that answered, in probe order.
// Hosts that do not answer or are not sync servers are left out.
func (s *Scanner) ScanHosts(ctx context.Context, hosts []string, ports []int) ([]Server, error) {
	type found struct {
		index  int
		server Server
	}

	results := make(chan found, len(hosts)*len(ports))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.config.Concurrency)

	index := 0
	for _, host := range hosts {
		for _, port := range ports {
			i := index
			index++
			eg.Go(func() error {
				if server, ok := s.probe(egCtx, host, port); ok {
					results <- found{index: i, server: server}
				}
				return nil
			})
		}
	}

	eg.Wait()
	close(results)

	var collected []found
	for r := range results {
		collected = append(collected, r)
	}
	sort.Slice(collected, func(i, j int) bool {
		return collected[i].index < collected[j].index
	})

	servers := make([]Server, 0, len(collected))
	for _, r := range collected {
		servers = append(servers, r.server)
	}

	slog.Info("discovery done", "probed", index, "found", len(servers))
	return servers, ctx.Err()
}

func (s *Scanner) probe(ctx context.Context, host string, port int) (Server, bool) {
	if ctx.Err() != nil {
		return Server{}, false
	}

	probeCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	url := "http://" + net.JoinHostPort(host, strconv.Itoa(port))
	start := time.Now()
	health, err := s.prober.Health(probeCtx, url)
	if err != nil {
		return Server{}, false
	}

	server := Server{
		URL:      url,
		Host:     host,
		Port:     port,
		DataPath: health.DataPath,
		Version:  health.Version,
		Latency:  time.Since(start),
	}
	slog.Debug("discovery found", "url", url, "latency", server.Latency)
	return server, true
}
