// Package annexb - locating NAL units in an Annex-B byte stream
package annexb

import "bytes"

const StartCode = "\x00\x00\x00\x01"

var startCode3 = []byte{0, 0, 1}

// FindType - payload of the first NAL unit of the given type,
// including the NAL header byte, or nil. Accepts both 3 and 4 byte
// start codes.
func FindType(b []byte, naluType byte) []byte {
	for _, nalu := range Split(b) {
		if nalu[0]&0x1F == naluType {
			return nalu
		}
	}
	return nil
}

// Split - all NAL units of the stream, without start codes
func Split(b []byte) (nalus [][]byte) {
	i := bytes.Index(b, startCode3)
	if i < 0 {
		return nil
	}

	for {
		b = b[i+len(startCode3):]

		if i = bytes.Index(b, startCode3); i < 0 {
			break
		}

		// a 4 byte start code shows up as "00 00 01" one byte early
		n := i
		if n > 0 && b[n-1] == 0 {
			n--
		}
		if n > 0 {
			nalus = append(nalus, b[:n])
		}
	}

	if len(b) > 0 {
		nalus = append(nalus, b)
	}

	return
}
