package radiodriver

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"syscall"
	"time"

	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"
)

// frontendStatus is the subset of a radiod STATUS packet this driver
// parses: gain stages, overload counters and IF power. Only the IF power
// is read back, by a VFO's GetSignalPwr. Adapted from the teacher's
// FrontendStatus.
type frontendStatus struct {
	ssrc             uint32
	lnaGain          int32
	mixerGain        int32
	ifGain           int32
	rfGain           float32
	rfAtten          float32
	rfAGC            int32
	ifPower          float32
	adOverranges     int64
	samplesSinceOver int64
	lastUpdate       time.Time
}

// statusTracker listens for STATUS packets radiod emits per-channel and
// keeps the most recent one for each SSRC, adapted from
// FrontendStatusTracker in radiod_status.go.
type statusTracker struct {
	mu       sync.RWMutex
	byssrc   map[uint32]*frontendStatus
	listener *net.UDPConn
	stop_    chan struct{}
}

func newStatusTracker() *statusTracker {
	return &statusTracker{
		byssrc: make(map[uint32]*frontendStatus),
		stop_:  make(chan struct{}),
	}
}

func (st *statusTracker) start(addr *net.UDPAddr, iface *net.Interface) error {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var opErr error
			if err := c.Control(func(fd uintptr) {
				if e := syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1); e != nil {
					opErr = fmt.Errorf("SO_REUSEADDR: %w", e)
					return
				}
				if e := syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, unix.SO_REUSEPORT, 1); e != nil {
					opErr = fmt.Errorf("SO_REUSEPORT: %w", e)
					return
				}
			}); err != nil {
				return err
			}
			return opErr
		},
	}

	pc, err := lc.ListenPacket(context.Background(), "udp4", addr.String())
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	conn := pc.(*net.UDPConn)

	p := ipv4.NewPacketConn(conn)
	if iface != nil {
		if e := p.JoinGroup(iface, addr); e != nil {
			conn.Close()
			return fmt.Errorf("join group on %s: %w", iface.Name, e)
		}
	}
	if loop, e := loopbackInterface(); e == nil {
		if e := p.JoinGroup(loop, addr); e != nil {
			log.Printf("radiodriver: failed to join STATUS group on loopback: %v", e)
		}
	}

	st.listener = conn
	go st.loop()
	return nil
}

func (st *statusTracker) loop() {
	buf := make([]byte, 9000)
	for {
		select {
		case <-st.stop_:
			return
		default:
		}
		st.listener.SetReadDeadline(time.Now().Add(time.Second))
		n, _, err := st.listener.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			log.Printf("radiodriver: STATUS read error: %v", err)
			continue
		}
		if n < 2 || buf[0] != pktTypeStatus {
			continue
		}
		st.parse(buf[1:n])
	}
}

func (st *statusTracker) parse(data []byte) {
	fs := &frontendStatus{lastUpdate: time.Now()}

	offset := 0
	for offset < len(data) {
		if offset+1 > len(data) {
			break
		}
		tag := data[offset]
		offset++
		if tag == tagEOL {
			break
		}
		if offset >= len(data) {
			break
		}
		length := int(data[offset])
		offset++
		if length&0x80 != 0 {
			lol := length & 0x7f
			length = 0
			for i := 0; i < lol && offset < len(data); i++ {
				length = (length << 8) | int(data[offset])
				offset++
			}
		}
		if offset+length > len(data) {
			break
		}
		value := data[offset : offset+length]
		switch tag {
		case tagOutputSSRC:
			fs.ssrc = decodeInt32(value)
		case tagLNAGain:
			fs.lnaGain = int32(decodeInt32(value))
		case tagMixerGain:
			fs.mixerGain = int32(decodeInt32(value))
		case tagIFGain:
			fs.ifGain = int32(decodeInt32(value))
		case tagRFGain:
			fs.rfGain = decodeFloat(value)
		case tagRFAtten:
			fs.rfAtten = decodeFloat(value)
		case tagRFAGC:
			fs.rfAGC = int32(decodeInt32(value))
		case tagIFPower:
			fs.ifPower = decodeFloat(value)
		case tagADOver:
			fs.adOverranges = decodeInt64(value)
		case tagSamplesSinceOver:
			fs.samplesSinceOver = decodeInt64(value)
		}
		offset += length
	}

	if fs.ssrc != 0 {
		st.mu.Lock()
		st.byssrc[fs.ssrc] = fs
		st.mu.Unlock()
	}
}

func (st *statusTracker) get(ssrc uint32) (*frontendStatus, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	fs, ok := st.byssrc[ssrc]
	if !ok {
		return nil, false
	}
	cp := *fs
	return &cp, true
}

func (st *statusTracker) stop() {
	close(st.stop_)
	if st.listener != nil {
		st.listener.Close()
	}
}
