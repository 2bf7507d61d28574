package radiodriver

import (
	"fmt"
	"log"
	"net"
	"sync"
	"syscall"
	"time"

	"golang.org/x/net/ipv4"
)

// controller owns the multicast UDP socket used to send control packets
// to radiod and the status tracker that listens for its STATUS replies.
// Adapted from the teacher's RadiodController.
type controller struct {
	statusAddr *net.UDPAddr
	dataAddr   *net.UDPAddr
	conn       *net.UDPConn
	iface      *net.Interface
	status     *statusTracker

	cmdMu sync.Mutex
}

// Config selects the multicast groups and interface radiodriver joins.
// Field names mirror internal/config.RadiodConfig, which is passed
// through verbatim by cmd/sdrctl-server.
type Config struct {
	StatusGroup string
	DataGroup   string
	Interface   string
}

func newController(cfg Config) (*controller, error) {
	statusAddr, err := resolveMulticastAddr(cfg.StatusGroup)
	if err != nil {
		return nil, fmt.Errorf("radiodriver: resolving status group %q: %w", cfg.StatusGroup, err)
	}
	var dataAddr *net.UDPAddr
	if cfg.DataGroup != "" {
		dataAddr, err = resolveMulticastAddr(cfg.DataGroup)
		if err != nil {
			return nil, fmt.Errorf("radiodriver: resolving data group %q: %w", cfg.DataGroup, err)
		}
	}

	var iface *net.Interface
	if cfg.Interface != "" {
		iface, err = net.InterfaceByName(cfg.Interface)
		if err != nil {
			return nil, fmt.Errorf("radiodriver: interface %s: %w", cfg.Interface, err)
		}
	} else {
		iface, err = defaultMulticastInterface()
		if err != nil {
			log.Printf("radiodriver: could not determine default interface: %v", err)
		}
	}

	conn, err := setupControlSocket(statusAddr, iface)
	if err != nil {
		return nil, fmt.Errorf("radiodriver: control socket: %w", err)
	}

	rc := &controller{
		statusAddr: statusAddr,
		dataAddr:   dataAddr,
		conn:       conn,
		iface:      iface,
		status:     newStatusTracker(),
	}

	if err := rc.status.start(statusAddr, iface); err != nil {
		log.Printf("radiodriver: failed to start STATUS listener: %v (signal-power readback unavailable)", err)
	}

	log.Printf("radiodriver: controller initialized (status=%s data=%s iface=%v)", cfg.StatusGroup, cfg.DataGroup, iface)
	return rc, nil
}

// fnv1hash matches ka9q-radio's fnv1hash() in misc.c: the FNV-1 variant
// (multiply then xor), not Go's standard library FNV-1a.
func fnv1hash(data []byte) uint32 {
	const offset32 = 2166136261
	const prime32 = 16777619
	hv := uint32(offset32)
	for _, b := range data {
		hv *= prime32
		hv ^= uint32(b)
	}
	return hv
}

// makeMaddr derives a 239.x.x.x multicast address from a hostname when
// DNS resolution fails, matching ka9q-radio's make_maddr() in
// multicast.c: hash the name, then avoid the low octet ranges reserved
// to prevent collisions with Ethernet multicast MAC ranges.
func makeMaddr(hostname string) string {
	h := fnv1hash([]byte(hostname))
	b2 := byte(h >> 16)
	b3 := byte(h >> 8)
	b4 := byte(h)
	if b4 == 0 {
		b4 = 1
	}
	if b4 == 255 {
		b4 = 254
	}
	return fmt.Sprintf("239.%d.%d.%d", b2, b3, b4)
}

// resolveMulticastAddr tries normal DNS resolution first and falls back
// to the hash-derived address ka9q-radio uses when a group name isn't in
// DNS (common for ad hoc multicast groups named after the radiod instance).
func resolveMulticastAddr(addrStr string) (*net.UDPAddr, error) {
	if addrStr == "" {
		return nil, fmt.Errorf("empty multicast group")
	}
	if addr, err := net.ResolveUDPAddr("udp4", addrStr); err == nil {
		return addr, nil
	}
	host, port, err := net.SplitHostPort(addrStr)
	if err != nil {
		host, port = addrStr, "5006"
	}
	derived := makeMaddr(host)
	log.Printf("radiodriver: %s not resolvable via DNS, using hash-derived multicast address %s", addrStr, derived)
	return net.ResolveUDPAddr("udp4", net.JoinHostPort(derived, port))
}

// setupControlSocket creates and configures a UDP socket suitable for
// sending control commands to a radiod multicast group, matching
// ka9q-radio's connect_mcast()/output_mcast() socket option choices.
func setupControlSocket(addr *net.UDPAddr, iface *net.Interface) (*net.UDPConn, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	rawConn, err := conn.SyscallConn()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("raw conn: %w", err)
	}

	var sockErr error
	err = rawConn.Control(func(fd uintptr) {
		if e := syscall.SetsockoptInt(int(fd), syscall.IPPROTO_IP, syscall.IP_MULTICAST_LOOP, 1); e != nil {
			sockErr = fmt.Errorf("IP_MULTICAST_LOOP: %w", e)
			return
		}
		if e := syscall.SetsockoptInt(int(fd), syscall.IPPROTO_IP, syscall.IP_MULTICAST_TTL, 1); e != nil {
			sockErr = fmt.Errorf("IP_MULTICAST_TTL: %w", e)
			return
		}
		if iface != nil {
			mreqn := syscall.IPMreqn{Ifindex: int32(iface.Index)}
			if e := syscall.SetsockoptIPMreqn(int(fd), syscall.IPPROTO_IP, syscall.IP_MULTICAST_IF, &mreqn); e != nil {
				sockErr = fmt.Errorf("IP_MULTICAST_IF: %w", e)
				return
			}
		}
		if e := syscall.SetNonblock(int(fd), true); e != nil {
			sockErr = fmt.Errorf("SetNonblock: %w", e)
		}
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("control: %w", err)
	}
	if sockErr != nil {
		conn.Close()
		return nil, sockErr
	}

	p := ipv4.NewPacketConn(conn)
	if iface != nil {
		if e := p.JoinGroup(iface, addr); e != nil {
			log.Printf("radiodriver: failed to join multicast group on %s: %v", iface.Name, e)
		}
	}
	if loop, e := loopbackInterface(); e == nil {
		if e := p.JoinGroup(loop, addr); e != nil {
			log.Printf("radiodriver: failed to join multicast group on loopback: %v", e)
		}
	}

	return conn, nil
}

func defaultMulticastInterface() (*net.Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		if iface.Flags&net.FlagMulticast == 0 {
			continue
		}
		return &iface, nil
	}
	return nil, fmt.Errorf("no suitable multicast interface found")
}

func loopbackInterface() (*net.Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			return &iface, nil
		}
	}
	return nil, fmt.Errorf("loopback interface not found")
}

func (rc *controller) send(cmd []byte) error {
	rc.cmdMu.Lock()
	defer rc.cmdMu.Unlock()
	if err := rc.conn.SetWriteDeadline(time.Now().Add(time.Second)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	n, err := rc.conn.WriteTo(cmd, rc.statusAddr)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if n != len(cmd) {
		return fmt.Errorf("incomplete write: sent %d of %d bytes", n, len(cmd))
	}
	return nil
}

func (rc *controller) close() error {
	if rc.status != nil {
		rc.status.stop()
	}
	if rc.conn != nil {
		return rc.conn.Close()
	}
	return nil
}
