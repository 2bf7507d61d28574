// Package sdrtype holds the value types shared by every layer of the
// receiver control plane: timestamps, enumerations and error kinds.
package sdrtype

import "time"

// Timestamp is the wall-clock moment an event was emitted.
type Timestamp struct {
	Seconds uint64
	Nanos   uint32
}

// Now returns the current wall-clock time as a Timestamp.
func Now() Timestamp {
	t := time.Now()
	return Timestamp{Seconds: uint64(t.Unix()), Nanos: uint32(t.Nanosecond())}
}

// Demod enumerates the demodulator modes a VFO can run.
type Demod int32

const (
	DemodOff Demod = iota
	DemodRaw
	DemodAM
	DemodAMSync
	DemodLSB
	DemodUSB
	DemodCWL
	DemodCWU
	DemodNFM
	DemodWFMMono
	DemodWFMStereo
	DemodWFMStereoOIRT
	demodCount
)

func (d Demod) Valid() bool { return d >= DemodOff && d < demodCount }

func (d Demod) String() string {
	switch d {
	case DemodOff:
		return "OFF"
	case DemodRaw:
		return "RAW"
	case DemodAM:
		return "AM"
	case DemodAMSync:
		return "AM_SYNC"
	case DemodLSB:
		return "LSB"
	case DemodUSB:
		return "USB"
	case DemodCWL:
		return "CWL"
	case DemodCWU:
		return "CWU"
	case DemodNFM:
		return "NFM"
	case DemodWFMMono:
		return "WFM_MONO"
	case DemodWFMStereo:
		return "WFM_STEREO"
	case DemodWFMStereoOIRT:
		return "WFM_STEREO_OIRT"
	default:
		return "UNKNOWN"
	}
}

// FilterShape selects the transition-bandwidth ratio of the demod filter.
type FilterShape int32

const (
	FilterSoft FilterShape = iota
	FilterNormal
	FilterSharp
)

// TransitionRatio returns the transition-bandwidth ratio of the pass-band
// width for this shape (§4.3 of the filter design).
func (s FilterShape) TransitionRatio() float64 {
	switch s {
	case FilterSoft:
		return 0.5
	case FilterSharp:
		return 0.1
	default:
		return 0.2
	}
}

// WindowType enumerates the FFT window kinds offered for spectrum display.
type WindowType int32

const (
	WindowRectangular WindowType = iota
	WindowHamming
	WindowHann
	WindowBlackman
	WindowBlackmanHarris
	WindowBlackmanNuttall
	WindowNuttall
	WindowFlatTop
	WindowBartlett
	WindowBartlettHann
	WindowBohman
	WindowCosine
	WindowGaussian
	WindowKaiser
	WindowTukey
	WindowWelch
	windowCount
)

func (w WindowType) Valid() bool { return w >= WindowRectangular && w < windowCount }

// ErrorKind is the taxonomy of outcomes a façade command can reply with.
type ErrorKind int32

const (
	ErrOK ErrorKind = iota
	ErrWorkerBusy
	ErrGainNotFound
	ErrAlreadyRecording
	ErrAlreadyNotRecording
	ErrInvalidInputDevice
	ErrInvalidFilter
	ErrInvalidFilterOffset
	ErrInvalidCWOffset
	ErrInvalidDemod
	ErrVfoNotFound
	ErrDemodIsOff
	ErrNotRunning
	ErrCouldntCreateFile
	ErrSnifferAlreadyActive
	ErrSnifferAlreadyInactive
	ErrInsufficientBufferSize
	ErrRdsAlreadyActive
	ErrRdsAlreadyInactive
	ErrCallError
	ErrUnimplemented
	ErrUnknownError
)

func (e ErrorKind) String() string {
	switch e {
	case ErrOK:
		return "OK"
	case ErrWorkerBusy:
		return "WORKER_BUSY"
	case ErrGainNotFound:
		return "GAIN_NOT_FOUND"
	case ErrAlreadyRecording:
		return "ALREADY_RECORDING"
	case ErrAlreadyNotRecording:
		return "ALREADY_NOT_RECORDING"
	case ErrInvalidInputDevice:
		return "INVALID_INPUT_DEVICE"
	case ErrInvalidFilter:
		return "INVALID_FILTER"
	case ErrInvalidFilterOffset:
		return "INVALID_FILTER_OFFSET"
	case ErrInvalidCWOffset:
		return "INVALID_CW_OFFSET"
	case ErrInvalidDemod:
		return "INVALID_DEMOD"
	case ErrVfoNotFound:
		return "VFO_NOT_FOUND"
	case ErrDemodIsOff:
		return "DEMOD_IS_OFF"
	case ErrNotRunning:
		return "NOT_RUNNING"
	case ErrCouldntCreateFile:
		return "COULDNT_CREATE_FILE"
	case ErrSnifferAlreadyActive:
		return "SNIFFER_ALREADY_ACTIVE"
	case ErrSnifferAlreadyInactive:
		return "SNIFFER_ALREADY_INACTIVE"
	case ErrInsufficientBufferSize:
		return "INSUFFICIENT_BUFFER_SIZE"
	case ErrRdsAlreadyActive:
		return "RDS_ALREADY_ACTIVE"
	case ErrRdsAlreadyInactive:
		return "RDS_ALREADY_INACTIVE"
	case ErrCallError:
		return "CALL_ERROR"
	case ErrUnimplemented:
		return "UNIMPLEMENTED"
	default:
		return "UNKNOWN_ERROR"
	}
}

// Error adapts ErrorKind to the error interface so façade code can return
// it through normal Go error-handling paths when convenient.
func (e ErrorKind) Error() string { return e.String() }

// FilterRange describes the valid low/high edges for a demod, per the
// range table in spec.md §4.3.
type FilterRange struct {
	LowMin, LowMax   int32
	HighMin, HighMax int32
}

var filterRanges = map[Demod]FilterRange{
	DemodOff:           {0, 0, 0, 0},
	DemodRaw:           {-40000, -200, 200, 40000},
	DemodAM:            {-40000, -200, 200, 40000},
	DemodAMSync:        {-40000, -200, 200, 40000},
	DemodLSB:           {-40000, -100, -5000, 0},
	DemodUSB:           {0, 5000, 100, 40000},
	DemodCWL:           {-5000, -100, 100, 5000},
	DemodCWU:           {-5000, -100, 100, 5000},
	DemodNFM:           {-40000, -1000, 1000, 40000},
	DemodWFMMono:       {-120000, -10000, 10000, 120000},
	DemodWFMStereo:     {-120000, -10000, 10000, 120000},
	DemodWFMStereoOIRT: {-120000, -10000, 10000, 120000},
}

// FilterRangeFor returns the valid filter-edge range for a demod.
func FilterRangeFor(d Demod) FilterRange { return filterRanges[d] }

// DefaultFilter is a low/high pair with the NORMAL shape, per spec.md's
// default-filter table.
type DefaultFilter struct {
	Low, High int32
}

var defaultFilters = map[Demod]DefaultFilter{
	DemodOff:           {0, 0},
	DemodRaw:           {-5000, 5000},
	DemodAM:            {-5000, 5000},
	DemodAMSync:        {-5000, 5000},
	DemodLSB:           {-2800, -100},
	DemodUSB:           {100, 2800},
	DemodCWL:           {-250, 250},
	DemodCWU:           {-250, 250},
	DemodNFM:           {-5000, 5000},
	DemodWFMMono:       {-80000, 80000},
	DemodWFMStereo:     {-80000, 80000},
	DemodWFMStereoOIRT: {-80000, 80000},
}

// DefaultFilterFor returns the default filter edges (NORMAL shape) for a demod.
func DefaultFilterFor(d Demod) DefaultFilter { return defaultFilters[d] }

// ValidateFilter checks low/high/shape against the range table for demod d
// and the DSP-imposed minimum width. minWidth is supplied by the DSP driver
// since it is a property of the concrete filter implementation.
func ValidateFilter(d Demod, low, high int32, minWidth int32) ErrorKind {
	if high <= low {
		return ErrInvalidFilter
	}
	r := FilterRangeFor(d)
	if low < r.LowMin || low > r.LowMax {
		return ErrInvalidFilter
	}
	if high < r.HighMin || high > r.HighMax {
		return ErrInvalidFilter
	}
	if high-low < minWidth {
		return ErrInvalidFilter
	}
	return ErrOK
}
