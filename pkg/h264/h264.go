package h264

import (
	"encoding/base64"
	"strings"
)

const (
	NALUTypePFrame = 1 // Coded slice of a non-IDR picture
	NALUTypeIFrame = 5 // Coded slice of an IDR picture
	NALUTypeSEI    = 6 // Supplemental enhancement information (SEI)
	NALUTypeSPS    = 7 // Sequence parameter set
	NALUTypePPS    = 8 // Picture parameter set
	NALUTypeAUD    = 9 // Access unit delimiter
)

// NALUType - type of a raw NAL unit (header byte first)
func NALUType(b []byte) byte {
	return b[0] & 0x1F
}

// RemoveEmulationBytes - copy of a NAL unit payload with the
// emulation-prevention bytes removed (00 00 03 xx -> 00 00 xx)
func RemoveEmulationBytes(b []byte) []byte {
	to := make([]byte, 0, len(b))

	i := 0
	for i+2 < len(b) {
		if b[i] == 0 && b[i+1] == 0 && b[i+2] == 3 {
			to = append(to, 0, 0)
			i += 3
		} else {
			to = append(to, b[i])
			i++
		}
	}

	return append(to, b[i:]...)
}

// GetParameterSet - SPS and PPS NAL units from an SDP fmtp line
func GetParameterSet(fmtp string) (sps, pps []byte) {
	if fmtp == "" {
		return
	}

	s := between(fmtp, "sprop-parameter-sets=", ";")
	if s == "" {
		return
	}

	i := strings.IndexByte(s, ',')
	if i < 0 {
		return
	}

	sps, _ = base64.StdEncoding.DecodeString(s[:i])
	pps, _ = base64.StdEncoding.DecodeString(s[i+1:])

	return
}

func between(s, sub1, sub2 string) string {
	i := strings.Index(s, sub1)
	if i < 0 {
		return ""
	}
	s = s[i+len(sub1):]

	if i = strings.Index(s, sub2); i >= 0 {
		return s[:i]
	}
	return s
}
