package radiodriver

import "github.com/cwsl/sdrctl/internal/sdrtype"

// presetFor maps sdrtype.Demod onto the radiod preset name it is created
// with via PRESET (tag 0x55), following the preset names shipped in
// ka9q-radio's presets.conf (usb/lsb/cwu/cwl/am/am-sync/nfm/wfm/iq).
func presetFor(d sdrtype.Demod) string {
	switch d {
	case sdrtype.DemodUSB:
		return "usb"
	case sdrtype.DemodLSB:
		return "lsb"
	case sdrtype.DemodCWU:
		return "cwu"
	case sdrtype.DemodCWL:
		return "cwl"
	case sdrtype.DemodAM:
		return "am"
	case sdrtype.DemodAMSync:
		return "am-sync"
	case sdrtype.DemodNFM:
		return "nfm"
	case sdrtype.DemodWFMMono:
		return "wfm"
	case sdrtype.DemodWFMStereo:
		return "wfm-stereo"
	case sdrtype.DemodWFMStereoOIRT:
		return "wfm-stereo-oirt"
	case sdrtype.DemodRaw:
		return "iq"
	default:
		return "usb"
	}
}
