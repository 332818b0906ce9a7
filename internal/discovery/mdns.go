package discovery

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/playforge/netcore/internal/metrics"
)

// mdnsServiceType is the standard mDNS/Bonjour service type this backend
// registers and browses under.
const mdnsServiceType = "_netcore._tcp"

// MDNSService advertises and discovers hosts via standard mDNS/DNS-SD
// instead of the bespoke LAN broadcast protocol. It implements Service
// identically, so a caller can swap backends without any other change.
type MDNSService struct {
	mu      sync.Mutex
	server  *zeroconf.Server
	cancel  context.CancelFunc
}

// NewMDNS creates an mDNS-backed discovery service.
func NewMDNS() *MDNSService { return &MDNSService{} }

// StartAdvertising registers an mDNS service instance advertising gameID
// in its TXT record. Idempotent: a second call while already advertising
// is a no-op.
func (m *MDNSService) StartAdvertising(gameID string, reliablePort uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.server != nil {
		return nil
	}

	host, _ := os.Hostname()
	instance := fmt.Sprintf("netcore-%s-%d", host, os.Getpid())
	txt := []string{"game_id=" + gameID}

	srv, err := zeroconf.Register(instance, mdnsServiceType, "local.", int(reliablePort), txt, nil)
	if err != nil {
		return fmt.Errorf("mdns register: %w", err)
	}
	m.server = srv
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go func() {
		<-ctx.Done()
	}()
	return nil
}

// StopAdvertising unregisters the mDNS service. Safe to call if never
// started.
func (m *MDNSService) StopAdvertising() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.server == nil {
		return
	}
	if m.cancel != nil {
		m.cancel()
	}
	m.server.Shutdown()
	m.server = nil
}

// Find browses for _netcore._tcp instances for up to timeout, returning
// the distinct hosts whose TXT record's game_id matches.
func (m *MDNSService) Find(gameID string, timeout time.Duration) ([]HostInfo, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("mdns resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry, 16)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := resolver.Browse(ctx, mdnsServiceType, "local.", entries); err != nil {
		return nil, fmt.Errorf("mdns browse: %w", err)
	}

	found := make(map[string]HostInfo)
	for {
		select {
		case <-ctx.Done():
			hosts := make([]HostInfo, 0, len(found))
			for _, h := range found {
				hosts = append(hosts, h)
			}
			metrics.SetDiscoveryHostsFound(len(hosts))
			return hosts, nil
		case entry, ok := <-entries:
			if !ok {
				hosts := make([]HostInfo, 0, len(found))
				for _, h := range found {
					hosts = append(hosts, h)
				}
				metrics.SetDiscoveryHostsFound(len(hosts))
				return hosts, nil
			}
			if entry == nil {
				continue
			}
			entryGameID := textValue(entry.Text, "game_id")
			if entryGameID != gameID {
				continue
			}
			for _, ip := range entry.AddrIPv4 {
				key := fmt.Sprintf("%s:%d", ip.String(), entry.Port)
				if _, dup := found[key]; dup {
					continue
				}
				found[key] = HostInfo{
					Name:         entry.Instance,
					IP:           ip.String(),
					ReliablePort: uint16(entry.Port),
					GameID:       entryGameID,
				}
			}
		}
	}
}

func textValue(txt []string, key string) string {
	prefix := key + "="
	for _, kv := range txt {
		if len(kv) > len(prefix) && kv[:len(prefix)] == prefix {
			return kv[len(prefix):]
		}
	}
	return ""
}

var _ Service = (*MDNSService)(nil)
