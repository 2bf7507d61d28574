package radiodriver

import (
	"fmt"
	"sync"

	"github.com/cwsl/sdrctl/internal/dsp"
	"github.com/cwsl/sdrctl/internal/sdrtype"
)

// minFilterWidth mirrors dsp/sim's minFilterWidth: the DSP-imposed
// minimum filter width spec.md §4.3 leaves to the driver. radiod itself
// imposes no hard minimum beyond its FFT bin spacing; this driver uses
// the same modest constant as the simulator so filter validation behaves
// identically across backends.
const minFilterWidth = 50

// VfoChannel drives one radiod channel (identified by its SSRC) over the
// control protocol in controller.go/protocol.go. Per-sample processing
// parameters that radiod's preset/filter-edge protocol has no equivalent
// for (AGC shape, noise blanker, FM deviation/de-emphasis, audio gain,
// local recording/sniffing/RDS bookkeeping) are kept as shadow state the
// way dsp/sim does, since those are consumed by software downstream of
// radiod's RTP output rather than by radiod itself.
type VfoChannel struct {
	mu sync.Mutex

	rc         *controller
	ssrc       uint32
	currentRF  func() uint64
	created    bool

	demod  sdrtype.Demod
	shape  sdrtype.FilterShape
	low    int32
	high   int32
	cwOff  int32
	offset int64

	sqlLevel float32
	sqlAlpha float32

	agcOn         bool
	agcHang       bool
	agcThreshold  int32
	agcSlope      int32
	agcDecay      int32
	agcManualGain float32

	nbOn  [2]bool
	nbThr [2]float32

	fmMaxDev  float32
	fmDeemph  float32
	amDcr     bool
	amSyncDcr bool
	amSyncBw  float32

	audioGain float32

	recording     bool
	recordingPath string

	sniffing   bool
	snifferLen int

	udpStreaming bool
	udpHost      string
	udpPort      uint16
	udpStereo    bool

	rdsDecoding bool
}

func newVfoChannel(rc *controller, ssrc uint32, currentRF func() uint64) *VfoChannel {
	return &VfoChannel{rc: rc, ssrc: ssrc, currentRF: currentRF, demod: sdrtype.DemodOff}
}

// disable tears down the radiod channel by setting its frequency to 0,
// matching the teacher's DisableChannel — radiod expires idle channels
// after its configured timeout rather than exposing an explicit destroy.
func (v *VfoChannel) disable() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.created {
		return nil
	}
	buf := make([]byte, 0, 32)
	buf = append(buf, pktTypeCmd)
	buf = encodeInt32(buf, tagOutputSSRC, v.ssrc)
	buf = encodeDouble(buf, tagRadioFrequency, 0)
	buf = encodeInt32(buf, tagCommandTag, v.ssrc)
	buf = append(buf, tagEOL)
	return v.rc.send(buf)
}

// sendTune issues a CreateChannel-equivalent command the first time a
// demod goes active, and an UpdateChannel-equivalent command thereafter,
// matching CreateChannelWithSquelch/UpdateChannelWithSquelch in the
// teacher's radiod.go.
func (v *VfoChannel) sendTune() error {
	freq := v.currentRF() + uint64(v.offset) + uint64(v.cwOff)
	preset := presetFor(v.demod)

	buf := make([]byte, 0, 128)
	buf = append(buf, pktTypeCmd)
	buf = encodeInt32(buf, tagOutputSSRC, v.ssrc)
	buf = encodeDouble(buf, tagRadioFrequency, float64(freq))
	buf = encodeString(buf, tagPreset, preset)
	if v.high > v.low {
		buf = encodeFloat(buf, tagLowEdge, float32(v.low))
		buf = encodeFloat(buf, tagHighEdge, float32(v.high))
	}
	if v.sqlLevel != 0 {
		buf = encodeByte(buf, tagSNRSquelch, 1)
		buf = encodeFloat(buf, tagSquelchOpen, v.sqlLevel)
		buf = encodeFloat(buf, tagSquelchClose, v.sqlLevel-v.sqlAlpha)
	}
	buf = encodeInt32(buf, tagStatusInterval, 5)
	buf = encodeInt32(buf, tagCommandTag, v.ssrc)
	buf = append(buf, tagEOL)

	if err := v.rc.send(buf); err != nil {
		return fmt.Errorf("radiodriver: tune ssrc 0x%08x: %w", v.ssrc, err)
	}
	v.created = true
	return nil
}

func (v *VfoChannel) SetFilter(shape sdrtype.FilterShape, low, high int32) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if code := sdrtype.ValidateFilter(v.demod, low, high, minFilterWidth); code != sdrtype.ErrOK {
		return code
	}
	v.shape, v.low, v.high = shape, low, high
	if v.demod != sdrtype.DemodOff {
		return v.sendTune()
	}
	return nil
}

func (v *VfoChannel) FilterMinWidth() int32 { return minFilterWidth }

func (v *VfoChannel) SetCwOffset(offset int32) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if offset < -5000 || offset > 5000 {
		return sdrtype.ErrInvalidCWOffset
	}
	v.cwOff = offset
	if v.demod != sdrtype.DemodOff {
		return v.sendTune()
	}
	return nil
}

func (v *VfoChannel) SetOffset(offset int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.offset = offset
	if v.demod != sdrtype.DemodOff {
		v.sendTune()
	}
}

func (v *VfoChannel) SetDemod(d sdrtype.Demod) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !d.Valid() {
		return sdrtype.ErrInvalidDemod
	}
	v.demod = d
	if d == sdrtype.DemodOff {
		return nil
	}
	return v.sendTune()
}

// GetSignalPwr reports the IF power radiod last included in a STATUS
// packet for this channel's SSRC, the closest equivalent this driver has
// to the original's vfo_channel::get_signal_pwr(). Returns 0 before any
// STATUS packet has arrived.
func (v *VfoChannel) GetSignalPwr() float32 {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.rc.status == nil {
		return 0
	}
	fs, ok := v.rc.status.get(v.ssrc)
	if !ok {
		return 0
	}
	return fs.ifPower
}

func (v *VfoChannel) SetSqlLevel(val float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sqlLevel = val
	if v.demod != sdrtype.DemodOff {
		v.sendTune()
	}
}

func (v *VfoChannel) SetSqlAlpha(val float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sqlAlpha = val
	if v.demod != sdrtype.DemodOff {
		v.sendTune()
	}
}

func (v *VfoChannel) SetAgcOn(val bool)               { v.mu.Lock(); v.agcOn = val; v.mu.Unlock() }
func (v *VfoChannel) SetAgcHang(val bool)             { v.mu.Lock(); v.agcHang = val; v.mu.Unlock() }
func (v *VfoChannel) SetAgcThreshold(val int32)       { v.mu.Lock(); v.agcThreshold = val; v.mu.Unlock() }
func (v *VfoChannel) SetAgcSlope(val int32)           { v.mu.Lock(); v.agcSlope = val; v.mu.Unlock() }
func (v *VfoChannel) SetAgcDecay(val int32)           { v.mu.Lock(); v.agcDecay = val; v.mu.Unlock() }
func (v *VfoChannel) SetAgcManualGain(val float32)    { v.mu.Lock(); v.agcManualGain = val; v.mu.Unlock() }

func (v *VfoChannel) SetNoiseBlankerOn(id int32, val bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if id == 1 || id == 2 {
		v.nbOn[id-1] = val
	}
}

func (v *VfoChannel) SetNoiseBlankerThreshold(id int32, val float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if id == 1 || id == 2 {
		v.nbThr[id-1] = val
	}
}

func (v *VfoChannel) SetFmMaxDev(val float32)   { v.mu.Lock(); v.fmMaxDev = val; v.mu.Unlock() }
func (v *VfoChannel) SetFmDeemph(val float32)   { v.mu.Lock(); v.fmDeemph = val; v.mu.Unlock() }
func (v *VfoChannel) SetAmDcr(val bool)         { v.mu.Lock(); v.amDcr = val; v.mu.Unlock() }
func (v *VfoChannel) SetAmSyncDcr(val bool)     { v.mu.Lock(); v.amSyncDcr = val; v.mu.Unlock() }
func (v *VfoChannel) SetAmSyncPllBw(val float32) { v.mu.Lock(); v.amSyncBw = val; v.mu.Unlock() }
func (v *VfoChannel) SetAudioGain(val float32)  { v.mu.Lock(); v.audioGain = val; v.mu.Unlock() }

func (v *VfoChannel) StartAudioRecording(path string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.recording {
		return sdrtype.ErrAlreadyRecording
	}
	if path == "" {
		return sdrtype.ErrCouldntCreateFile
	}
	v.recording, v.recordingPath = true, path
	return nil
}

func (v *VfoChannel) StopAudioRecording() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.recording {
		return sdrtype.ErrAlreadyNotRecording
	}
	v.recording, v.recordingPath = false, ""
	return nil
}

func (v *VfoChannel) IsRecordingAudio() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.recording
}

func (v *VfoChannel) StartSniffer(rate, size uint32) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.sniffing {
		return sdrtype.ErrSnifferAlreadyActive
	}
	v.sniffing, v.snifferLen = true, int(size)
	return nil
}

func (v *VfoChannel) StopSniffer() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.sniffing {
		return sdrtype.ErrSnifferAlreadyInactive
	}
	v.sniffing = false
	return nil
}

func (v *VfoChannel) IsSnifferActive() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sniffing
}

func (v *VfoChannel) GetSnifferData(buf []float32) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(buf) < v.snifferLen {
		return 0, sdrtype.ErrInsufficientBufferSize
	}
	return v.snifferLen, nil
}

func (v *VfoChannel) SnifferBufferSize() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snifferLen
}

// StartUdpStreaming/StopUdpStreaming/IsUdpStreaming track whether a
// consumer has been told to subscribe to this channel's RTP data group;
// the actual RTP stream is radiod's dataAddr, already multicasting
// regardless of this bookkeeping.
func (v *VfoChannel) StartUdpStreaming(host string, port uint16, stereo bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.udpStreaming {
		return fmt.Errorf("radiodriver: udp streaming already active")
	}
	v.udpStreaming, v.udpHost, v.udpPort, v.udpStereo = true, host, port, stereo
	return nil
}

func (v *VfoChannel) StopUdpStreaming() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.udpStreaming = false
	return nil
}

func (v *VfoChannel) IsUdpStreaming() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.udpStreaming
}

func (v *VfoChannel) StartRdsDecoder() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.rdsDecoding {
		return sdrtype.ErrRdsAlreadyActive
	}
	v.rdsDecoding = true
	return nil
}

func (v *VfoChannel) StopRdsDecoder() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.rdsDecoding {
		return sdrtype.ErrRdsAlreadyInactive
	}
	v.rdsDecoding = false
	return nil
}

func (v *VfoChannel) IsRdsDecoding() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rdsDecoding
}

func (v *VfoChannel) ResetRdsParser() {}

// GetRdsData returns decoded RDS bytes plus the RDS group type. radiod's
// control protocol (protocol.go) carries no RDS payload tag, so this
// mirrors dsp/sim's placeholder rather than returning real data.
func (v *VfoChannel) GetRdsData() (string, int32) {
	return "", 0
}

var _ dsp.VfoChannel = (*VfoChannel)(nil)
