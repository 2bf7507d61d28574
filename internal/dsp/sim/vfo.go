package sim

import (
	"fmt"
	"sync"

	"github.com/cwsl/sdrctl/internal/dsp"
	"github.com/cwsl/sdrctl/internal/sdrtype"
)

// VfoChannel is the simulated per-VFO DSP channel. minFilterWidth mirrors
// the "DSP-imposed minimum width" spec.md §4.3 refers to without
// specifying a value; the simulator uses a modest constant typical of a
// narrow CW filter so the minWidth rejection path is actually reachable
// in tests.
const minFilterWidth = 50

type VfoChannel struct {
	mu sync.Mutex

	demod   sdrtype.Demod
	shape   sdrtype.FilterShape
	low     int32
	high    int32
	cwOff   int32
	offset  int64

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

func newVfoChannel() *VfoChannel {
	return &VfoChannel{demod: sdrtype.DemodOff}
}

func (v *VfoChannel) SetFilter(shape sdrtype.FilterShape, low, high int32) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if code := sdrtype.ValidateFilter(v.demod, low, high, minFilterWidth); code != sdrtype.ErrOK {
		return code
	}
	v.shape, v.low, v.high = shape, low, high
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
	return nil
}

func (v *VfoChannel) SetOffset(offset int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.offset = offset
}

func (v *VfoChannel) SetDemod(d sdrtype.Demod) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !d.Valid() {
		return sdrtype.ErrInvalidDemod
	}
	v.demod = d
	return nil
}

// GetSignalPwr reports the demodulated signal level, full scale 1.0. The
// simulator runs no real DSP (GetIqFftData's bins are likewise always
// zero), so this is a fixed placeholder rather than a measured value.
func (v *VfoChannel) GetSignalPwr() float32 {
	return 0
}

func (v *VfoChannel) SetSqlLevel(val float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sqlLevel = val
}

func (v *VfoChannel) SetSqlAlpha(val float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sqlAlpha = val
}

func (v *VfoChannel) SetAgcOn(val bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.agcOn = val
}

func (v *VfoChannel) SetAgcHang(val bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.agcHang = val
}

func (v *VfoChannel) SetAgcThreshold(val int32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.agcThreshold = val
}

func (v *VfoChannel) SetAgcSlope(val int32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.agcSlope = val
}

func (v *VfoChannel) SetAgcDecay(val int32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.agcDecay = val
}

func (v *VfoChannel) SetAgcManualGain(val float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.agcManualGain = val
}

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

func (v *VfoChannel) SetFmMaxDev(val float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.fmMaxDev = val
}

func (v *VfoChannel) SetFmDeemph(val float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.fmDeemph = val
}

func (v *VfoChannel) SetAmDcr(val bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.amDcr = val
}

func (v *VfoChannel) SetAmSyncDcr(val bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.amSyncDcr = val
}

func (v *VfoChannel) SetAmSyncPllBw(val float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.amSyncBw = val
}

func (v *VfoChannel) SetAudioGain(val float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.audioGain = val
}

func (v *VfoChannel) StartAudioRecording(path string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.recording {
		return sdrtype.ErrAlreadyRecording
	}
	if path == "" {
		return sdrtype.ErrCouldntCreateFile
	}
	v.recording = true
	v.recordingPath = path
	return nil
}

func (v *VfoChannel) StopAudioRecording() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.recording {
		return sdrtype.ErrAlreadyNotRecording
	}
	v.recording = false
	v.recordingPath = ""
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
	v.sniffing = true
	v.snifferLen = int(size)
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

func (v *VfoChannel) StartUdpStreaming(host string, port uint16, stereo bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.udpStreaming {
		return fmt.Errorf("sim: udp streaming already active")
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

// GetRdsData returns decoded RDS bytes accumulated since the last call
// plus the RDS group type. The simulator performs no real RDS decode, so
// it always reports an empty buffer.
func (v *VfoChannel) GetRdsData() (string, int32) {
	return "", 0
}

var _ dsp.VfoChannel = (*VfoChannel)(nil)
