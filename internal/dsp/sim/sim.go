// Package sim is an in-memory reference implementation of the dsp.Receiver
// and dsp.VfoChannel contract. It performs no real signal processing; it
// tracks state the way a real DSP object would so the façades above it
// can be built and tested without radiod or any hardware attached.
//
// State bookkeeping (maps of named gain stages, antenna lists, recording
// flags) follows the teacher's config.go/radiod_status.go style of plain
// structs with explicit fields rather than a generic property bag.
package sim

import (
	"fmt"
	"sync"

	"github.com/cwsl/sdrctl/internal/dsp"
	"github.com/cwsl/sdrctl/internal/sdrtype"
)

// gainStage is one named, ranged gain control on the simulated front end.
type gainStage struct {
	name       string
	value      float32
	min        float32
	max        float32
	step       float32
}

// Receiver is the simulated DSP receiver object.
type Receiver struct {
	mu sync.Mutex

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

	vfos []*VfoChannel
}

// New creates a simulated receiver with a plausible default front end:
// one device ("sim0"), two antennas, two gain stages (RF and IF).
func New() *Receiver {
	return &Receiver{
		device:    "sim0",
		antennas:  []string{"RX", "ANT1"},
		antenna:   "RX",
		inputRate: 2400000,
		fftSize:   4096,
		fftWindow: sdrtype.WindowHamming,
		gains: []gainStage{
			{name: "RF", value: 20, min: 0, max: 49.6, step: 0.1},
			{name: "IF", value: 20, min: 0, max: 59, step: 1},
		},
	}
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

// SetInputDevice swaps the simulated front end. An empty string or a
// device name starting with "bogus" simulates a driver construction
// failure, letting callers exercise the INVALID_INPUT_DEVICE / zero-source
// fallback path from spec.md §4.4 without needing real hardware absence.
func (r *Receiver) SetInputDevice(device string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if device == "" || len(device) >= 5 && device[:5] == "bogus" {
		r.device = "zero"
		r.antennas = []string{"ZERO"}
		r.antenna = "ZERO"
		r.rfFreq = 0
		r.inputRate = 48000
		return fmt.Errorf("simulated device construction failure for %q", device)
	}
	r.device = device
	r.antennas = []string{"RX", "ANT1"}
	r.antenna = "RX"
	return nil
}

func (r *Receiver) CurrentInputDevice() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.device
}

func (r *Receiver) SetInputRate(rate uint32) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// A real driver often rounds to the nearest supported rate; the
	// simulator rounds down to the nearest multiple of 48000 to exercise
	// that "actually achieved" contract.
	actual := (rate / 48000) * 48000
	if actual == 0 {
		actual = 48000
	}
	r.inputRate = actual
	return actual, nil
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
	return fmt.Errorf("sim: unknown antenna %q", antenna)
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

func (r *Receiver) SetIqSwap(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.iqSwap = v
}

func (r *Receiver) SetDcCancel(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dcCancel = v
}

func (r *Receiver) SetIqBalance(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.iqBalance = v
}

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
	return fmt.Errorf("sim: unknown gain stage %q", name)
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

func (r *Receiver) GetIqFftData() dsp.FftFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	bins := make([]float32, r.fftSize)
	return dsp.FftFrame{CenterFreq: r.rfFreq, SampleRate: r.inputRate, Bins: bins}
}

func (r *Receiver) StartIqRecording(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.iqRecording {
		return fmt.Errorf("sim: already recording")
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
	v := newVfoChannel()
	r.mu.Lock()
	r.vfos = append(r.vfos, v)
	r.mu.Unlock()
	return v, nil
}

func (r *Receiver) RemoveVfoChannel(ch dsp.VfoChannel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := ch.(*VfoChannel)
	if !ok {
		return fmt.Errorf("sim: vfo channel not found")
	}
	for i, existing := range r.vfos {
		if existing == v {
			r.vfos = append(r.vfos[:i], r.vfos[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("sim: vfo channel not found")
}

// compile-time interface conformance checks
var (
	_ dsp.Receiver = (*Receiver)(nil)
)
