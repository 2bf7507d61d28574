// Package radiodriver's Receiver implements dsp.Receiver against a live
// ka9q-radio radiod instance. Per spec.md's scope, radiod owns the actual
// front end (SDR hardware, sample rate, antenna selection) via its own
// config file; this driver's Receiver-level methods track that
// configuration as local shadow state for the façade's book-keeping
// (spec.md §6.1 calls the DSP object "synchronous", not necessarily the
// sole owner of hardware state) while per-VFO methods issue real control
// packets over the radiod multicast protocol, since frequency/mode/filter
// are genuinely per-channel in radiod.
package radiodriver

import (
	"fmt"
	"sync"

	"github.com/cwsl/sdrctl/internal/dsp"
	"github.com/cwsl/sdrctl/internal/sdrtype"
)

type gainStage struct {
	name             string
	value            float32
	min, max, step   float32
}

// Receiver is the radiod-backed dsp.Receiver implementation.
type Receiver struct {
	mu sync.Mutex

	rc *controller

	running    bool
	device     string
	antennas   []string
	antenna    string
	inputRate  uint32
	inputDecim uint32
	iqSwap     bool
	dcCancel   bool
	iqBalance  bool
	autoGain   bool
	gains      []gainStage
	freqCorr   int32
	rfFreq     uint64
	fftSize    uint32
	fftWindow  sdrtype.WindowType

	iqRecording bool
	iqPath      string

	nextSSRC uint32
	vfos     []*VfoChannel
}

// New dials the radiod multicast groups described by cfg and returns a
// Receiver ready to be wrapped by the receiver façade. It does not start
// radiod itself — radiod is expected to already be running against the
// same multicast groups (spec.md's control plane doesn't manage the DSP
// process lifecycle, only drive it).
func New(cfg Config) (*Receiver, error) {
	rc, err := newController(cfg)
	if err != nil {
		return nil, err
	}
	return &Receiver{
		rc:        rc,
		device:    "radiod",
		antennas:  []string{"ANT"},
		antenna:   "ANT",
		inputRate: 192000,
		fftSize:   4096,
		fftWindow: sdrtype.WindowHamming,
		gains: []gainStage{
			{name: "RF", value: 20, min: 0, max: 49.6, step: 0.1},
		},
		nextSSRC: 1,
	}, nil
}

// Close tears down the underlying multicast sockets.
func (r *Receiver) Close() error {
	return r.rc.close()
}

func (r *Receiver) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = true
	return nil
}

func (r *Receiver) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	return nil
}

func (r *Receiver) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// SetInputDevice, for radiod, identifies which already-running radiod
// instance's multicast groups we're attached to; since those groups are
// fixed at construction this just updates the shadow label used for
// reporting, there's nothing on the wire to change it short of
// reconnecting the controller.
func (r *Receiver) SetInputDevice(device string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if device == "" {
		return fmt.Errorf("radiodriver: input device name required")
	}
	r.device = device
	return nil
}

func (r *Receiver) CurrentInputDevice() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.device
}

// SetInputRate/SetInputDecim are front-end sample-rate controls owned by
// radiod's own config; this driver reports the configured value back but
// does not attempt to change radiod's front end at runtime.
func (r *Receiver) SetInputRate(rate uint32) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputRate = rate
	return rate, nil
}

func (r *Receiver) InputRate() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inputRate
}

func (r *Receiver) SetInputDecim(decim uint32) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if decim == 0 {
		decim = 1
	}
	r.inputDecim = decim
	return decim, nil
}

func (r *Receiver) InputDecim() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inputDecim
}

func (r *Receiver) SetAntenna(antenna string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.antennas {
		if a == antenna {
			r.antenna = antenna
			return nil
		}
	}
	return fmt.Errorf("radiodriver: unknown antenna %q", antenna)
}

func (r *Receiver) Antennas() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.antennas))
	copy(out, r.antennas)
	return out
}

func (r *Receiver) Antenna() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.antenna
}

// SetRfFreq tracks the receiver-scope "current frequency" shadow used
// for the FFT display; actual tuning happens per-VFO in radiod.
func (r *Receiver) SetRfFreq(freq uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rfFreq = freq
	return nil
}

func (r *Receiver) RfFreq() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rfFreq
}

func (r *Receiver) SetIqSwap(v bool)    { r.mu.Lock(); r.iqSwap = v; r.mu.Unlock() }
func (r *Receiver) SetDcCancel(v bool)  { r.mu.Lock(); r.dcCancel = v; r.mu.Unlock() }
func (r *Receiver) SetIqBalance(v bool) { r.mu.Lock(); r.iqBalance = v; r.mu.Unlock() }

func (r *Receiver) SetAutoGain(v bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.autoGain = v
	return nil
}

func (r *Receiver) GainNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.gains))
	for i, g := range r.gains {
		out[i] = g.name
	}
	return out
}

// GainRange reports the range of a configured gain stage from the local
// stage table only; STATUS packets from radiod are not consulted.
func (r *Receiver) GainRange(name string) (dsp.GainRange, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.gains {
		if g.name == name {
			return dsp.GainRange{Min: g.min, Max: g.max, Step: g.step}, true
		}
	}
	return dsp.GainRange{}, false
}

func (r *Receiver) SetGain(name string, value float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.gains {
		if r.gains[i].name == name {
			r.gains[i].value = value
			return nil
		}
	}
	return fmt.Errorf("radiodriver: unknown gain stage %q", name)
}

func (r *Receiver) SetFreqCorr(ppm int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.freqCorr = ppm
}

func (r *Receiver) SetIqFftSize(size uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fftSize = size
}

func (r *Receiver) IqFftSize() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fftSize
}

func (r *Receiver) SetIqFftWindow(w sdrtype.WindowType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fftWindow = w
}

func (r *Receiver) IqFftWindow() sdrtype.WindowType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fftWindow
}

// GetIqFftData returns an empty frame of the configured size: spectrum
// bins in this driver arrive out-of-band over radiod's RTP data stream
// (rc.dataAddr), which is consumed by a separate collector process per
// spec.md's Non-goals around audio/IQ streaming, not polled synchronously
// here.
func (r *Receiver) GetIqFftData() dsp.FftFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return dsp.FftFrame{CenterFreq: r.rfFreq, SampleRate: r.inputRate, Bins: make([]float32, r.fftSize)}
}

func (r *Receiver) StartIqRecording(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.iqRecording {
		return fmt.Errorf("radiodriver: already recording")
	}
	r.iqRecording = true
	r.iqPath = path
	return nil
}

func (r *Receiver) StopIqRecording() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.iqRecording = false
	r.iqPath = ""
	return nil
}

func (r *Receiver) IsIqRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.iqRecording
}

func (r *Receiver) IqFilename() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.iqPath
}

func (r *Receiver) AddVfoChannel() (dsp.VfoChannel, error) {
	r.mu.Lock()
	ssrc := r.nextSSRC
	r.nextSSRC++
	r.mu.Unlock()

	v := newVfoChannel(r.rc, ssrc, r.currentRfFreq)
	r.mu.Lock()
	r.vfos = append(r.vfos, v)
	r.mu.Unlock()
	return v, nil
}

func (r *Receiver) RemoveVfoChannel(ch dsp.VfoChannel) error {
	v, ok := ch.(*VfoChannel)
	if !ok {
		return fmt.Errorf("radiodriver: vfo channel not found")
	}
	if err := v.disable(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.vfos {
		if existing == v {
			r.vfos = append(r.vfos[:i], r.vfos[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("radiodriver: vfo channel not found")
}

func (r *Receiver) currentRfFreq() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rfFreq
}

var _ dsp.Receiver = (*Receiver)(nil)
