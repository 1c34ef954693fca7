package h264

import (
	"encoding/binary"

	"github.com/pion/rtp"
)

const naluTypeSTAPA = 24

// RTPExtractSPS - the SPS NAL unit carried by an RTP packet, or nil.
// Handles the single NAL unit mode and STAP-A aggregation, the two
// ways cameras deliver parameter sets. A fragmented SPS (FU-A) is not
// reassembled here.
func RTPExtractSPS(packet *rtp.Packet) []byte {
	payload := packet.Payload
	if len(payload) == 0 {
		return nil
	}

	switch NALUType(payload) {
	case NALUTypeSPS:
		return payload

	case naluTypeSTAPA:
		payload = payload[1:]
		for len(payload) > 2 {
			size := int(binary.BigEndian.Uint16(payload))
			payload = payload[2:]

			if size == 0 || size > len(payload) {
				return nil
			}
			if nalu := payload[:size]; NALUType(nalu) == NALUTypeSPS {
				return nalu
			}

			payload = payload[size:]
		}
	}

	return nil
}
