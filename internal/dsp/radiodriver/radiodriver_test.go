package radiodriver

import (
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwsl/sdrctl/internal/sdrtype"
)

// newLoopbackController builds a controller whose "multicast" status
// address is actually a unicast loopback socket, so sendTune's wire path
// can be exercised in unit tests without a real radiod or multicast
// routing on the test runner.
func newLoopbackController(t *testing.T) *controller {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &controller{statusAddr: conn.LocalAddr().(*net.UDPAddr), conn: conn}
}

func TestFnv1HashMatchesKnownKa9qRadioVector(t *testing.T) {
	// fnv1hash must compute FNV-1 (multiply-then-xor), not FNV-1a, since
	// make_maddr() in ka9q-radio's multicast.c specifically uses FNV-1.
	// The FNV-1 32-bit offset basis hashed over zero input bytes is the
	// offset basis itself.
	assert.Equal(t, uint32(2166136261), fnv1hash(nil))
}

func TestMakeMaddrProducesStable239Address(t *testing.T) {
	a := makeMaddr("hf-status.local")
	b := makeMaddr("hf-status.local")
	assert.Equal(t, a, b, "hashing the same hostname twice must be deterministic")

	var octet0, octet1, octet2, octet3 int
	n, err := fmt.Sscanf(a, "%d.%d.%d.%d", &octet0, &octet1, &octet2, &octet3)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	assert.Equal(t, 239, octet0)
	assert.NotEqual(t, 0, octet3, "low octet 0 is reserved and must be nudged to 1")
	assert.NotEqual(t, 255, octet3, "low octet 255 is reserved and must be nudged to 254")
}

func TestEncodeDecodeInt32RoundTrips(t *testing.T) {
	buf := encodeInt32(nil, 0x12, 0xABCD1234)
	// tag, length, then big-endian value bytes with leading zeros stripped
	assert.Equal(t, byte(0x12), buf[0])
	length := int(buf[1])
	assert.Equal(t, decodeInt32(buf[2:2+length]), uint32(0xABCD1234))
}

func TestEncodeInt32ZeroValueUsesZeroLength(t *testing.T) {
	buf := encodeInt32(nil, 0x12, 0)
	assert.Equal(t, []byte{0x12, 0}, buf)
	assert.Equal(t, uint32(0), decodeInt32(nil))
}

func TestEncodeDecodeFloatRoundTrips(t *testing.T) {
	buf := encodeFloat(nil, 0x53, 12.5)
	length := int(buf[1])
	assert.InDelta(t, float32(12.5), decodeFloat(buf[2:2+length]), 0.0001)
}

func TestEncodeDecodeDoubleRoundTrips(t *testing.T) {
	buf := encodeDouble(nil, 0x21, 14250000)
	length := int(buf[1])
	assert.InDelta(t, float64(14250000), decodeDouble(buf[2:2+length]), 0.5)
}

func TestEncodeStringIncludesLengthPrefixAndBytes(t *testing.T) {
	buf := encodeString(nil, 0x55, "usb")
	assert.Equal(t, byte(0x55), buf[0])
	assert.Equal(t, byte(3), buf[1])
	assert.Equal(t, "usb", string(buf[2:5]))
}

func TestPresetForKnownDemods(t *testing.T) {
	assert.Equal(t, "usb", presetFor(sdrtype.DemodUSB))
	assert.Equal(t, "lsb", presetFor(sdrtype.DemodLSB))
	assert.Equal(t, "cwu", presetFor(sdrtype.DemodCWU))
	assert.Equal(t, "cwl", presetFor(sdrtype.DemodCWL))
	assert.Equal(t, "nfm", presetFor(sdrtype.DemodNFM))
	assert.Equal(t, "wfm", presetFor(sdrtype.DemodWFMMono))
}

func newTestVfo(t *testing.T) *VfoChannel {
	rc := newLoopbackController(t)
	return newVfoChannel(rc, 42, func() uint64 { return 14250000 })
}

func TestVfoSetDemodRejectsInvalid(t *testing.T) {
	v := newTestVfo(t)
	err := v.SetDemod(sdrtype.Demod(999))
	assert.Equal(t, sdrtype.ErrInvalidDemod, err)
}

func TestVfoSetFilterValidatesAgainstDemodRange(t *testing.T) {
	v := newTestVfo(t)
	v.demod = sdrtype.DemodUSB
	err := v.SetFilter(sdrtype.FilterNormal, 100, 2800)
	require.NoError(t, err)
	assert.Equal(t, int32(100), v.low)
	assert.Equal(t, int32(2800), v.high)

	err = v.SetFilter(sdrtype.FilterNormal, -100, 100)
	assert.Equal(t, sdrtype.ErrInvalidFilter, err)
}

func TestVfoSetCwOffsetBounds(t *testing.T) {
	v := newTestVfo(t)
	assert.Equal(t, sdrtype.ErrInvalidCWOffset, v.SetCwOffset(6000))
	assert.NoError(t, v.SetCwOffset(300))
	assert.Equal(t, int32(300), v.cwOff)
}

func TestVfoAudioRecordingLifecycle(t *testing.T) {
	v := newTestVfo(t)
	assert.False(t, v.IsRecordingAudio())
	require.NoError(t, v.StartAudioRecording("/tmp/out.wav"))
	assert.True(t, v.IsRecordingAudio())
	assert.Equal(t, sdrtype.ErrAlreadyRecording, v.StartAudioRecording("/tmp/out2.wav"))
	require.NoError(t, v.StopAudioRecording())
	assert.Equal(t, sdrtype.ErrAlreadyNotRecording, v.StopAudioRecording())
}

func TestVfoSnifferLifecycleAndBufferSizing(t *testing.T) {
	v := newTestVfo(t)
	require.NoError(t, v.StartSniffer(48000, 1024))
	assert.Equal(t, sdrtype.ErrSnifferAlreadyActive, v.StartSniffer(48000, 1024))

	n, err := v.GetSnifferData(make([]float32, 2048))
	require.NoError(t, err)
	assert.Equal(t, 1024, n)

	_, err = v.GetSnifferData(make([]float32, 10))
	assert.Equal(t, sdrtype.ErrInsufficientBufferSize, err)

	require.NoError(t, v.StopSniffer())
	assert.Equal(t, sdrtype.ErrSnifferAlreadyInactive, v.StopSniffer())
}

func TestVfoRdsDecoderLifecycle(t *testing.T) {
	v := newTestVfo(t)
	require.NoError(t, v.StartRdsDecoder())
	assert.Equal(t, sdrtype.ErrRdsAlreadyActive, v.StartRdsDecoder())
	require.NoError(t, v.StopRdsDecoder())
	assert.Equal(t, sdrtype.ErrRdsAlreadyInactive, v.StopRdsDecoder())
}

func TestVfoGetSignalPwrReadsBackLatestStatusPacket(t *testing.T) {
	v := newTestVfo(t)
	assert.Equal(t, float32(0), v.GetSignalPwr(), "no STATUS packet observed yet")

	v.rc.status = newStatusTracker()
	buf := []byte{}
	buf = encodeInt32(buf, tagOutputSSRC, v.ssrc)
	buf = encodeFloat(buf, tagIFPower, -12.5)
	buf = append(buf, tagEOL)
	v.rc.status.parse(buf)

	assert.InDelta(t, float32(-12.5), v.GetSignalPwr(), 0.01)
}

func TestVfoGetRdsDataHasNoWireEquivalentInRadiod(t *testing.T) {
	v := newTestVfo(t)
	data, rdsType := v.GetRdsData()
	assert.Equal(t, "", data)
	assert.Equal(t, int32(0), rdsType)
}

func TestStatusTrackerParsesFrontendStatusPacket(t *testing.T) {
	st := newStatusTracker()

	buf := []byte{pktTypeStatus}
	buf = encodeInt32(buf, tagOutputSSRC, 42)
	buf = encodeInt32(buf, tagLNAGain, 12)
	buf = encodeFloat(buf, tagRFGain, 20.5)
	buf = encodeInt64Tag(buf, tagADOver, 7)
	buf = append(buf, tagEOL)

	st.parse(buf[1:])

	fs, ok := st.get(42)
	require.True(t, ok)
	assert.Equal(t, int32(12), fs.lnaGain)
	assert.InDelta(t, float32(20.5), fs.rfGain, 0.01)
	assert.Equal(t, int64(7), fs.adOverranges)
}

func TestStatusTrackerIgnoresPacketWithoutSSRC(t *testing.T) {
	st := newStatusTracker()
	buf := []byte{}
	buf = encodeInt32(buf, tagLNAGain, 5)
	buf = append(buf, tagEOL)
	st.parse(buf)

	_, ok := st.get(0)
	assert.False(t, ok)
}

// encodeInt64Tag is a small test helper mirroring ka9q-radio's encoding of
// 64-bit counters (AD_OVER, SAMPLES_SINCE_OVER), which the production
// encoder doesn't need to emit itself since those tags are status-only.
func encodeInt64Tag(buf []byte, tag byte, value int64) []byte {
	buf = append(buf, tag)
	if value == 0 {
		return append(buf, 0)
	}
	x := uint64(value)
	length := 8
	for length > 0 && (x>>56) == 0 {
		x <<= 8
		length--
	}
	buf = append(buf, byte(length))
	for i := 0; i < length; i++ {
		buf = append(buf, byte(x>>56))
		x <<= 8
	}
	return buf
}
