package discovery

import (
	"context"
	"net"
	"os"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/playforge/netcore/internal/logging"
	"github.com/playforge/netcore/internal/metrics"
	"github.com/playforge/netcore/internal/wire"
	"golang.org/x/sys/unix"
)

// BroadcastPort is the well-known UDP port discovery announcements are
// sent to and scanned on.
const BroadcastPort = 12346

// BroadcastInterval is how often an advertising host re-sends its
// announcement.
const BroadcastInterval = 2 * time.Second

// LANService advertises and discovers hosts via UDP broadcast on the local
// subnet, per spec §4.B. It implements Service.
type LANService struct {
	mu        sync.Mutex
	conn      net.PacketConn
	cancel    context.CancelFunc
	advertise bool
}

// NewLAN creates a LAN broadcast discovery service.
func NewLAN() *LANService { return &LANService{} }

// StartAdvertising begins broadcasting {game_id, host_name, tcp_port} every
// BroadcastInterval. Idempotent: a second call while already advertising
// is a no-op.
func (l *LANService) StartAdvertising(gameID string, reliablePort uint16) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.advertise {
		return nil
	}
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return err
	}
	l.conn = conn
	l.advertise = true
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel

	hostName, err := os.Hostname()
	if err != nil {
		hostName = "unknown-host"
	}

	go l.advertiseLoop(ctx, conn, gameID, hostName, reliablePort)
	return nil
}

func (l *LANService) advertiseLoop(ctx context.Context, conn net.PacketConn, gameID, hostName string, reliablePort uint16) {
	dst := &net.UDPAddr{IP: net.IPv4bcast, Port: BroadcastPort}
	msg := wire.Advertisement{GameID: gameID, HostName: hostName, TCPPort: reliablePort}
	payload, err := wire.EncodePayload(msg)
	if err != nil {
		logging.L().Error("discovery_encode_error", "error", err)
		return
	}

	send := func() {
		if _, err := conn.WriteTo(payload, dst); err != nil {
			logging.L().Debug("discovery_broadcast_error", "addr", dst.String(), "error", err)
		} else {
			metrics.IncDiscoveryAdvertisement()
		}
		l.broadcastOnInterfaces(conn, payload)
	}

	send()
	t := time.NewTicker(BroadcastInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			send()
		}
	}
}

// broadcastOnInterfaces additionally targets each up, broadcast-capable
// interface's own broadcast address, since the global 255.255.255.255
// broadcast is dropped on some LANs/firewalls.
func (l *LANService) broadcastOnInterfaces(conn net.PacketConn, payload []byte) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagBroadcast == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipnet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipnet.IP.To4()
			if ip4 == nil {
				continue
			}
			bc := make(net.IP, 4)
			for i := range bc {
				bc[i] = ip4[i] | ^ipnet.Mask[i]
			}
			dst := &net.UDPAddr{IP: bc, Port: BroadcastPort}
			_, _ = conn.WriteTo(payload, dst)
		}
	}
}

// StopAdvertising stops announcing. Safe to call if never started.
func (l *LANService) StopAdvertising() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.advertise {
		return
	}
	l.advertise = false
	if l.cancel != nil {
		l.cancel()
	}
	if l.conn != nil {
		_ = l.conn.Close()
	}
}

// Find scans for hosts advertising gameID for up to timeout, returning all
// distinct (ip, reliable_port) hosts observed.
func (l *LANService) Find(gameID string, timeout time.Duration) ([]HostInfo, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	conn, err := lc.ListenPacket(ctx, "udp4", ":"+strconv.Itoa(BroadcastPort))
	if err != nil {
		// Spec: bind conflicts are non-fatal — the caller just gets
		// whatever a parallel listener (or none) can observe. We still
		// need a socket to read from, so fail only if we truly cannot
		// get one at all (e.g. no ephemeral ports available).
		conn, err = net.ListenPacket("udp4", ":0")
		if err != nil {
			return nil, err
		}
	}
	defer conn.Close()

	found := make(map[string]HostInfo)
	buf := make([]byte, wire.UDPBufferSize)
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(time.Now().Add(250 * time.Millisecond))
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			continue
		}
		var msg wire.Advertisement
		if err := wire.DecodePayload(buf[:n], &msg); err != nil {
			continue // malformed datagrams are dropped silently
		}
		if msg.GameID != gameID {
			continue
		}
		ip := addrIP(addr)
		key := ip + ":" + strconv.Itoa(int(msg.TCPPort))
		if _, dup := found[key]; dup {
			continue
		}
		found[key] = HostInfo{Name: msg.HostName, IP: ip, ReliablePort: msg.TCPPort, GameID: msg.GameID}
	}

	hosts := make([]HostInfo, 0, len(found))
	for _, h := range found {
		hosts = append(hosts, h)
	}
	metrics.SetDiscoveryHostsFound(len(hosts))
	return hosts, nil
}

func addrIP(addr net.Addr) string {
	if u, ok := addr.(*net.UDPAddr); ok {
		return u.IP.String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
