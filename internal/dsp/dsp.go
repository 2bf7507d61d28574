// Package dsp declares the synchronous DSP contract the receiver and VFO
// façades are built against (spec.md §6.1). The DSP implementation itself
// — FFT, filters, demodulators, resamplers, sinks — is out of scope for
// this module; only the interface and two concrete backends live here:
// dsp/sim (an in-memory reference/test driver) and dsp/radiodriver (a
// multicast driver for a real ka9q-radio radiod, adapted from the
// teacher's radiod.go).
package dsp

import "github.com/cwsl/sdrctl/internal/sdrtype"

// GainRange describes the valid range for one named gain stage.
type GainRange struct {
	Min, Max, Step float32
}

// FftFrame is a single spectrum snapshot returned by GetIqFftData.
type FftFrame struct {
	CenterFreq uint64
	SampleRate uint32
	Bins       []float32
}

// Receiver is the synchronous DSP object the receiver façade drives. All
// methods are called only from the worker thread (spec.md invariant 6).
type Receiver interface {
	Start() error
	Stop() error
	IsRunning() bool

	SetInputDevice(device string) error
	CurrentInputDevice() string

	SetInputRate(rate uint32) (actual uint32, err error)
	InputRate() uint32
	SetInputDecim(decim uint32) (actual uint32, err error)
	InputDecim() uint32

	SetAntenna(antenna string) error
	Antennas() []string
	Antenna() string

	SetRfFreq(freq uint64) error
	RfFreq() uint64

	SetIqSwap(v bool)
	SetDcCancel(v bool)
	SetIqBalance(v bool)

	SetAutoGain(v bool) error
	GainNames() []string
	GainRange(name string) (GainRange, bool)
	SetGain(name string, value float32) error

	SetFreqCorr(ppm int32)

	SetIqFftSize(size uint32)
	IqFftSize() uint32
	SetIqFftWindow(w sdrtype.WindowType)
	IqFftWindow() sdrtype.WindowType
	GetIqFftData() FftFrame

	StartIqRecording(path string) error
	StopIqRecording() error
	IsIqRecording() bool
	IqFilename() string

	AddVfoChannel() (VfoChannel, error)
	RemoveVfoChannel(ch VfoChannel) error
}

// VfoChannel is the synchronous DSP object one VFO façade drives.
type VfoChannel interface {
	SetFilter(shape sdrtype.FilterShape, low, high int32) error
	FilterMinWidth() int32
	SetCwOffset(offset int32) error
	SetOffset(offset int64)
	SetDemod(d sdrtype.Demod) error
	GetSignalPwr() float32

	SetSqlLevel(v float32)
	SetSqlAlpha(v float32)

	SetAgcOn(v bool)
	SetAgcHang(v bool)
	SetAgcThreshold(v int32)
	SetAgcSlope(v int32)
	SetAgcDecay(v int32)
	SetAgcManualGain(v float32)

	SetNoiseBlankerOn(id int32, v bool)
	SetNoiseBlankerThreshold(id int32, v float32)

	SetFmMaxDev(v float32)
	SetFmDeemph(v float32)
	SetAmDcr(v bool)
	SetAmSyncDcr(v bool)
	SetAmSyncPllBw(v float32)

	SetAudioGain(v float32)

	StartAudioRecording(path string) error
	StopAudioRecording() error
	IsRecordingAudio() bool

	StartSniffer(rate, size uint32) error
	StopSniffer() error
	IsSnifferActive() bool
	GetSnifferData(buf []float32) (n int, err error)
	SnifferBufferSize() int

	StartUdpStreaming(host string, port uint16, stereo bool) error
	StopUdpStreaming() error
	IsUdpStreaming() bool

	StartRdsDecoder() error
	StopRdsDecoder() error
	IsRdsDecoding() bool
	ResetRdsParser()
	GetRdsData() (data string, rdsType int32)
}
