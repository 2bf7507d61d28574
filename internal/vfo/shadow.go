package vfo

import "github.com/cwsl/sdrctl/internal/sdrtype"

// shadow is the last-known-good value of every parameter a VFO façade has
// set, per spec.md §3 ("Entities and ownership"). It exists so settings
// survive a demod switch: the DSP channel object itself may reset some of
// these when the demod is reconfigured, so the façade reapplies them from
// here afterwards. Only ever touched from the worker thread (invariant 6).
type shadow struct {
	demod sdrtype.Demod

	filterShape sdrtype.FilterShape
	filterLow   int32
	filterHigh  int32

	cwOffset int32
	offset   int64

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

	sniffing    bool
	snifferRate uint32
	snifferSize uint32

	udpStreaming bool
	udpHost      string
	udpPort      uint16
	udpStereo    bool

	rdsDecoding bool
}

// defaultShadow is the initial shadow state a freshly added VFO gets, per
// spec.md §4.4's addVfoChannel description.
func defaultShadow() shadow {
	def := sdrtype.DefaultFilterFor(sdrtype.DemodOff)
	return shadow{
		demod:         sdrtype.DemodOff,
		filterShape:   sdrtype.FilterNormal,
		filterLow:     def.Low,
		filterHigh:    def.High,
		agcOn:         true,
		agcThreshold:  -100,
		agcDecay:      500,
		sqlLevel:      -150.0,
		sqlAlpha:      0.001,
		nbOn:          [2]bool{false, false},
		nbThr:         [2]float32{3.3, 2.5},
		fmMaxDev:      5000,
		fmDeemph:      75e-6,
		amDcr:         true,
		amSyncDcr:     true,
		amSyncBw:      0.001,
		audioGain:     1.0,
	}
}
