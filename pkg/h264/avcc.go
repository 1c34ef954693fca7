package h264

import "encoding/binary"

// DecodeConfig - profile, SPS and PPS NAL units from an
// AVCDecoderConfigurationRecord (MP4/FLV "avcC" box). Returns the
// first parameter set of each kind, nil on a broken record.
func DecodeConfig(conf []byte) (profile, sps, pps []byte) {
	if len(conf) < 6 || conf[0] != 1 {
		return
	}

	profile = conf[1:4]

	count := conf[5] & 0x1F
	conf = conf[6:]
	for i := byte(0); i < count; i++ {
		if len(conf) < 2 {
			return
		}
		size := 2 + int(binary.BigEndian.Uint16(conf))
		if len(conf) < size {
			return
		}
		if sps == nil {
			sps = conf[2:size]
		}
		conf = conf[size:]
	}

	if len(conf) < 1 {
		return
	}

	count = conf[0]
	conf = conf[1:]
	for i := byte(0); i < count; i++ {
		if len(conf) < 2 {
			return
		}
		size := 2 + int(binary.BigEndian.Uint16(conf))
		if len(conf) < size {
			return
		}
		if pps == nil {
			pps = conf[2:size]
		}
		conf = conf[size:]
	}

	return
}
