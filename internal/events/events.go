// Package events defines the strongly typed receiver- and VFO-scope event
// variants emitted by the façades, and the monotonic id counter that
// orders them process-wide.
package events

import (
	"sync/atomic"

	"github.com/cwsl/sdrctl/internal/sdrtype"
)

// ReplayID is the id carried by synthetic events emitted during a
// subscription replay (spec.md §3: "id = -1 is reserved for synthetic
// events").
const ReplayID int64 = -1

// idCounter is the process-wide monotonically increasing event id source.
var idCounter int64

// NextID returns a strictly increasing id for a real (non-replay) event.
func NextID() int64 { return atomic.AddInt64(&idCounter, 1) }

// Common is the header shared by every receiver-scope event.
type Common struct {
	ID        int64
	Timestamp sdrtype.Timestamp
}

// NewCommon builds a Common header with a freshly allocated id.
func NewCommon() Common { return Common{ID: NextID(), Timestamp: sdrtype.Now()} }

// NewSyntheticCommon builds a Common header for a sync-replay event.
func NewSyntheticCommon() Common { return Common{ID: ReplayID, Timestamp: sdrtype.Now()} }

// VfoCommon is the header shared by every VFO-scope event: the receiver
// header plus the owning VFO's stable handle.
type VfoCommon struct {
	Common
	Handle uint64
}

// Event is implemented by every receiver-scope event variant.
type Event interface {
	CommonHeader() Common
	eventMarker()
}

// VfoEvent is implemented by every VFO-scope event variant.
type VfoEvent interface {
	CommonHeader() Common
	VfoHandle() uint64
	vfoEventMarker()
}

type base struct{ Common }

func (b base) CommonHeader() Common { return b.Common }
func (base) eventMarker()           {}

type vfoBase struct{ VfoCommon }

func (b vfoBase) CommonHeader() Common { return b.Common }
func (b vfoBase) VfoHandle() uint64    { return b.Handle }
func (vfoBase) vfoEventMarker()        {}

// ---- Receiver-scope events ----

type SyncStart struct{ base }
type SyncEnd struct{ base }
type Unsubscribed struct{ base }
type Started struct{ base }
type Stopped struct{ base }

type InputDeviceChanged struct {
	base
	Device string
}

type AntennaChanged struct {
	base
	Antenna string
}

type AntennasChanged struct {
	base
	Antennas []string
}

type InputRateChanged struct {
	base
	Rate uint32
}

type InputDecimChanged struct {
	base
	Decim uint32
}

type IqSwapChanged struct {
	base
	Value bool
}

type DcCancelChanged struct {
	base
	Value bool
}

type IqBalanceChanged struct {
	base
	Value bool
}

type RfFreqChanged struct {
	base
	Freq uint64
}

type GainStagesChanged struct {
	base
	Stages []string
}

type AutoGainChanged struct {
	base
	Value bool
}

type GainChanged struct {
	base
	Name  string
	Value float32
}

type FreqCorrChanged struct {
	base
	PPM int32
}

type FftSizeChanged struct {
	base
	Size uint32
}

type FftWindowChanged struct {
	base
	Window sdrtype.WindowType
}

type IqRecordingStarted struct {
	base
	Path string
}

type IqRecordingStopped struct{ base }

type VfoAdded struct {
	base
	Handle uint64
}

type VfoRemovedR struct {
	base
	Handle uint64
}

// ---- VFO-scope events ----

type VfoSyncStart struct{ vfoBase }
type VfoSyncEnd struct{ vfoBase }

type DemodChanged struct {
	vfoBase
	Demod sdrtype.Demod
}

type OffsetChanged struct {
	vfoBase
	Offset int64
}

type CwOffsetChanged struct {
	vfoBase
	Offset int32
}

type FilterChanged struct {
	vfoBase
	Shape sdrtype.FilterShape
	Low   int32
	High  int32
}

type NoiseBlankerOnChanged struct {
	vfoBase
	ID    int32
	Value bool
}

type NoiseBlankerThresholdChanged struct {
	vfoBase
	ID        int32
	Threshold float32
}

type SqlLevelChanged struct {
	vfoBase
	Level float32
}

type SqlAlphaChanged struct {
	vfoBase
	Alpha float32
}

type AgcOnChanged struct {
	vfoBase
	Value bool
}

type AgcHangChanged struct {
	vfoBase
	Value bool
}

type AgcThresholdChanged struct {
	vfoBase
	Value int32
}

type AgcSlopeChanged struct {
	vfoBase
	Value int32
}

type AgcDecayChanged struct {
	vfoBase
	Value int32
}

type AgcManualGainChanged struct {
	vfoBase
	Value float32
}

type FmMaxDevChanged struct {
	vfoBase
	Value float32
}

type FmDeemphChanged struct {
	vfoBase
	Value float32
}

type AmDcrChanged struct {
	vfoBase
	Value bool
}

type AmSyncDcrChanged struct {
	vfoBase
	Value bool
}

type AmSyncPllBwChanged struct {
	vfoBase
	Value float32
}

type RecordingStarted struct {
	vfoBase
	Path string
}

type RecordingStopped struct{ vfoBase }

type SnifferStarted struct {
	vfoBase
	Rate uint32
	Size uint32
}

type SnifferStopped struct{ vfoBase }

type UdpStreamingStarted struct {
	vfoBase
	Host   string
	Port   uint16
	Stereo bool
}

type UdpStreamingStopped struct{ vfoBase }

type RdsDecoderStarted struct{ vfoBase }
type RdsDecoderStopped struct{ vfoBase }
type RdsParserReset struct{ vfoBase }

type AudioGainChanged struct {
	vfoBase
	Value float32
}

type VfoRemoved struct{ vfoBase }

// header / vfoHeader are small helpers that stamp a fresh header onto a
// variant, used by the NewX constructors so call sites read as
// "NewXChanged(args)".

func header(synthetic bool) base {
	if synthetic {
		return base{NewSyntheticCommon()}
	}
	return base{NewCommon()}
}

func vfoHeader(handle uint64, synthetic bool) vfoBase {
	c := NewCommon()
	if synthetic {
		c = NewSyntheticCommon()
	}
	return vfoBase{VfoCommon{Common: c, Handle: handle}}
}

func NewSyncStart(synthetic bool) SyncStart           { return SyncStart{header(synthetic)} }
func NewSyncEnd(synthetic bool) SyncEnd               { return SyncEnd{header(synthetic)} }
func NewUnsubscribed(synthetic bool) Unsubscribed     { return Unsubscribed{header(synthetic)} }
func NewStarted(synthetic bool) Started               { return Started{header(synthetic)} }
func NewStopped(synthetic bool) Stopped               { return Stopped{header(synthetic)} }
func NewInputDeviceChanged(s bool, d string) InputDeviceChanged {
	return InputDeviceChanged{header(s), d}
}
func NewAntennaChanged(s bool, a string) AntennaChanged { return AntennaChanged{header(s), a} }
func NewAntennasChanged(s bool, a []string) AntennasChanged {
	return AntennasChanged{header(s), a}
}
func NewInputRateChanged(s bool, r uint32) InputRateChanged   { return InputRateChanged{header(s), r} }
func NewInputDecimChanged(s bool, d uint32) InputDecimChanged { return InputDecimChanged{header(s), d} }
func NewIqSwapChanged(s bool, v bool) IqSwapChanged           { return IqSwapChanged{header(s), v} }
func NewDcCancelChanged(s bool, v bool) DcCancelChanged       { return DcCancelChanged{header(s), v} }
func NewIqBalanceChanged(s bool, v bool) IqBalanceChanged     { return IqBalanceChanged{header(s), v} }
func NewRfFreqChanged(s bool, f uint64) RfFreqChanged         { return RfFreqChanged{header(s), f} }
func NewGainStagesChanged(s bool, st []string) GainStagesChanged {
	return GainStagesChanged{header(s), st}
}
func NewAutoGainChanged(s bool, v bool) AutoGainChanged { return AutoGainChanged{header(s), v} }
func NewGainChanged(s bool, name string, v float32) GainChanged {
	return GainChanged{header(s), name, v}
}
func NewFreqCorrChanged(s bool, ppm int32) FreqCorrChanged { return FreqCorrChanged{header(s), ppm} }
func NewFftSizeChanged(s bool, size uint32) FftSizeChanged { return FftSizeChanged{header(s), size} }
func NewFftWindowChanged(s bool, w sdrtype.WindowType) FftWindowChanged {
	return FftWindowChanged{header(s), w}
}
func NewIqRecordingStarted(s bool, path string) IqRecordingStarted {
	return IqRecordingStarted{header(s), path}
}
func NewIqRecordingStopped(s bool) IqRecordingStopped { return IqRecordingStopped{header(s)} }
func NewVfoAdded(s bool, h uint64) VfoAdded           { return VfoAdded{header(s), h} }
func NewVfoRemovedR(s bool, h uint64) VfoRemovedR     { return VfoRemovedR{header(s), h} }

func NewVfoSyncStart(h uint64, s bool) VfoSyncStart { return VfoSyncStart{vfoHeader(h, s)} }
func NewVfoSyncEnd(h uint64, s bool) VfoSyncEnd     { return VfoSyncEnd{vfoHeader(h, s)} }
func NewDemodChanged(h uint64, s bool, d sdrtype.Demod) DemodChanged {
	return DemodChanged{vfoHeader(h, s), d}
}
func NewOffsetChanged(h uint64, s bool, o int64) OffsetChanged {
	return OffsetChanged{vfoHeader(h, s), o}
}
func NewCwOffsetChanged(h uint64, s bool, o int32) CwOffsetChanged {
	return CwOffsetChanged{vfoHeader(h, s), o}
}
func NewFilterChanged(h uint64, s bool, shape sdrtype.FilterShape, low, high int32) FilterChanged {
	return FilterChanged{vfoHeader(h, s), shape, low, high}
}
func NewNoiseBlankerOnChanged(h uint64, s bool, id int32, v bool) NoiseBlankerOnChanged {
	return NoiseBlankerOnChanged{vfoHeader(h, s), id, v}
}
func NewNoiseBlankerThresholdChanged(h uint64, s bool, id int32, v float32) NoiseBlankerThresholdChanged {
	return NoiseBlankerThresholdChanged{vfoHeader(h, s), id, v}
}
func NewSqlLevelChanged(h uint64, s bool, v float32) SqlLevelChanged {
	return SqlLevelChanged{vfoHeader(h, s), v}
}
func NewSqlAlphaChanged(h uint64, s bool, v float32) SqlAlphaChanged {
	return SqlAlphaChanged{vfoHeader(h, s), v}
}
func NewAgcOnChanged(h uint64, s bool, v bool) AgcOnChanged { return AgcOnChanged{vfoHeader(h, s), v} }
func NewAgcHangChanged(h uint64, s bool, v bool) AgcHangChanged {
	return AgcHangChanged{vfoHeader(h, s), v}
}
func NewAgcThresholdChanged(h uint64, s bool, v int32) AgcThresholdChanged {
	return AgcThresholdChanged{vfoHeader(h, s), v}
}
func NewAgcSlopeChanged(h uint64, s bool, v int32) AgcSlopeChanged {
	return AgcSlopeChanged{vfoHeader(h, s), v}
}
func NewAgcDecayChanged(h uint64, s bool, v int32) AgcDecayChanged {
	return AgcDecayChanged{vfoHeader(h, s), v}
}
func NewAgcManualGainChanged(h uint64, s bool, v float32) AgcManualGainChanged {
	return AgcManualGainChanged{vfoHeader(h, s), v}
}
func NewFmMaxDevChanged(h uint64, s bool, v float32) FmMaxDevChanged {
	return FmMaxDevChanged{vfoHeader(h, s), v}
}
func NewFmDeemphChanged(h uint64, s bool, v float32) FmDeemphChanged {
	return FmDeemphChanged{vfoHeader(h, s), v}
}
func NewAmDcrChanged(h uint64, s bool, v bool) AmDcrChanged { return AmDcrChanged{vfoHeader(h, s), v} }
func NewAmSyncDcrChanged(h uint64, s bool, v bool) AmSyncDcrChanged {
	return AmSyncDcrChanged{vfoHeader(h, s), v}
}
func NewAmSyncPllBwChanged(h uint64, s bool, v float32) AmSyncPllBwChanged {
	return AmSyncPllBwChanged{vfoHeader(h, s), v}
}
func NewRecordingStarted(h uint64, s bool, path string) RecordingStarted {
	return RecordingStarted{vfoHeader(h, s), path}
}
func NewRecordingStopped(h uint64, s bool) RecordingStopped { return RecordingStopped{vfoHeader(h, s)} }
func NewSnifferStarted(h uint64, s bool, rate, size uint32) SnifferStarted {
	return SnifferStarted{vfoHeader(h, s), rate, size}
}
func NewSnifferStopped(h uint64, s bool) SnifferStopped { return SnifferStopped{vfoHeader(h, s)} }
func NewUdpStreamingStarted(h uint64, s bool, host string, port uint16, stereo bool) UdpStreamingStarted {
	return UdpStreamingStarted{vfoHeader(h, s), host, port, stereo}
}
func NewUdpStreamingStopped(h uint64, s bool) UdpStreamingStopped {
	return UdpStreamingStopped{vfoHeader(h, s)}
}
func NewRdsDecoderStarted(h uint64, s bool) RdsDecoderStarted { return RdsDecoderStarted{vfoHeader(h, s)} }
func NewRdsDecoderStopped(h uint64, s bool) RdsDecoderStopped { return RdsDecoderStopped{vfoHeader(h, s)} }
func NewRdsParserReset(h uint64, s bool) RdsParserReset       { return RdsParserReset{vfoHeader(h, s)} }
func NewAudioGainChanged(h uint64, s bool, v float32) AudioGainChanged {
	return AudioGainChanged{vfoHeader(h, s), v}
}
func NewVfoRemoved(h uint64, s bool) VfoRemoved { return VfoRemoved{vfoHeader(h, s)} }
