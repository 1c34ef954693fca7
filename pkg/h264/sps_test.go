package h264

import (
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/avpack/h264probe/pkg/bits"
	"github.com/stretchr/testify/require"
)

func fromHex(t *testing.T, s string) []byte {
	b, err := hex.DecodeString(s)
	require.Nil(t, err)
	return b
}

// QCIF baseline stream: profile 66 level 30, then sps_id=0,
// log2_max_frame_num_minus4=0, poc_type=0, poc_lsb_minus4=0,
// max_num_ref_frames=0, gaps=0, width_minus1=10, height_minus1=8,
// frame_mbs_only=1, direct_8x8=1, cropping=0
const spsQCIF = "42001ef8589c"

func TestDecodeSPS(t *testing.T) {
	sps, err := DecodeSPS(fromHex(t, spsQCIF))
	require.Nil(t, err)

	require.Equal(t, uint8(66), sps.ProfileIdc)
	require.Equal(t, uint8(30), sps.LevelIdc)
	require.Equal(t, uint8(0), sps.SeqParameterSetID)
	require.Equal(t, uint8(1), sps.ChromaFormatIdc)
	require.Equal(t, uint(4), sps.Log2MaxFrameNum)
	require.Equal(t, uint(0), sps.PicOrderCntType)
	require.Equal(t, uint(0), sps.MaxNumRefFrames)
	require.Equal(t, uint(11), sps.PicWidthInMbs)
	require.Equal(t, uint(9), sps.PicHeightInMapUnits)
	require.False(t, sps.FrameCropping)
	require.Equal(t, uint(176), sps.Width)
	require.Equal(t, uint(144), sps.Height)
	require.Equal(t, uint(176), sps.WidthCropped)
	require.Equal(t, uint(144), sps.HeightCropped)

	require.Equal(t, "Baseline 3.0, 176x144", sps.String())
}

func TestDecodeSPSTruncated(t *testing.T) {
	// same stream with the last byte dropped: the cropping flag
	// cannot be read anymore
	b := fromHex(t, spsQCIF)
	_, err := DecodeSPS(b[:len(b)-1])
	require.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeSPSInterlaced(t *testing.T) {
	// frame_mbs_only=0 doubles the map-unit height
	sps, err := DecodeSPS(fromHex(t, "42001ef85896"))
	require.Nil(t, err)

	require.Equal(t, uint(11), sps.PicWidthInMbs)
	require.Equal(t, uint(18), sps.PicHeightInMapUnits)
	require.Equal(t, uint(176), sps.Width)
	require.Equal(t, uint(288), sps.Height)
}

func TestDecodeSPSCropping(t *testing.T) {
	// built instead of hardcoded: 80x45 mbs with raw crop 1/2/0/3,
	// scaled x2 for 4:2:0 progressive
	w := bits.NewWriter()
	w.WriteUEGolomb(0) // seq_parameter_set_id
	w.WriteUEGolomb(0) // log2_max_frame_num_minus4
	w.WriteUEGolomb(2) // pic_order_cnt_type
	w.WriteUEGolomb(1) // max_num_ref_frames
	w.WriteBit(0)      // gaps_in_frame_num_value_allowed_flag
	w.WriteUEGolomb(79)
	w.WriteUEGolomb(44)
	w.WriteBit(1) // frame_mbs_only_flag
	w.WriteBit(1) // direct_8x8_inference_flag
	w.WriteBit(1) // frame_cropping_flag
	w.WriteUEGolomb(1)
	w.WriteUEGolomb(2)
	w.WriteUEGolomb(0)
	w.WriteUEGolomb(3)

	sps, err := DecodeSPS(append([]byte{66, 0, 31}, w.Bytes()...))
	require.Nil(t, err)

	require.Equal(t, uint(1280), sps.Width)
	require.Equal(t, uint(720), sps.Height)
	require.Equal(t, uint(2), sps.FrameCropLeftOffset)
	require.Equal(t, uint(4), sps.FrameCropRightOffset)
	require.Equal(t, uint(0), sps.FrameCropTopOffset)
	require.Equal(t, uint(6), sps.FrameCropBottomOffset)
	require.Equal(t, uint(1274), sps.WidthCropped)
	require.Equal(t, uint(714), sps.HeightCropped)
}

func TestDecodeSPSHighProfile(t *testing.T) {
	// 4:2:0 with scaling lists 0 (4x4) and 6 (8x8) present
	s := "640028ada4924924924902924924924924924924924924924924924924924924924924b403c0113f28"
	sps, err := DecodeSPS(fromHex(t, s))
	require.Nil(t, err)
	require.Equal(t, uint8(100), sps.ProfileIdc)
	require.Equal(t, uint8(1), sps.ChromaFormatIdc)
	require.Equal(t, uint(2), sps.PicOrderCntType)
	require.Equal(t, uint(1920), sps.WidthCropped)
	require.Equal(t, uint(1080), sps.HeightCropped)

	// 4:4:4 (12 scaling lists, separate colour plane bit, crop not
	// chroma-subsampled)
	s = "64002891b492492492492029249249249249249249249249249249249249249249249242924924924924" +
		"924924924924924924924924924924924925680780227e50"
	sps, err = DecodeSPS(fromHex(t, s))
	require.Nil(t, err)
	require.Equal(t, uint8(3), sps.ChromaFormatIdc)
	require.Equal(t, uint(4), sps.FrameCropBottomOffset)
	require.Equal(t, uint(1920), sps.WidthCropped)
	require.Equal(t, uint(1084), sps.HeightCropped)

	// first delta_scale drives next_scale to zero: default matrix,
	// rest of the list consumes no bits
	sps, err = DecodeSPS(fromHex(t, "64001ead80f901682c4e"))
	require.Nil(t, err)
	require.Equal(t, uint(176), sps.WidthCropped)
	require.Equal(t, uint(144), sps.HeightCropped)
}

func TestDecodeSPSMaxID(t *testing.T) {
	// 31 is the last legal seq_parameter_set_id
	w := bits.NewWriter()
	w.WriteUEGolomb(31)
	w.WriteUEGolomb(0)
	w.WriteUEGolomb(2)
	w.WriteUEGolomb(0)
	w.WriteBit(0)
	w.WriteUEGolomb(10)
	w.WriteUEGolomb(8)
	w.WriteBit(1)
	w.WriteBit(1)
	w.WriteBit(0)

	sps, err := DecodeSPS(append([]byte{66, 0, 30}, w.Bytes()...))
	require.Nil(t, err)
	require.Equal(t, uint8(31), sps.SeqParameterSetID)
	require.Equal(t, uint(176), sps.WidthCropped)
}

func TestDecodeSPSErrors(t *testing.T) {
	_, err := DecodeSPS(nil)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = DecodeSPS([]byte{0x42, 0x00})
	require.ErrorIs(t, err, ErrInvalidArgument)

	// seq_parameter_set_id = 32
	_, err = DecodeSPS(fromHex(t, "42001e0420"))
	require.ErrorIs(t, err, ErrMalformed)

	// chroma_format_idc = 4
	_, err = DecodeSPS(fromHex(t, "64001e94"))
	require.ErrorIs(t, err, ErrMalformed)

	// log2_max_frame_num = 17
	_, err = DecodeSPS(fromHex(t, "42001e8e"))
	require.ErrorIs(t, err, ErrMalformed)

	// pic_order_cnt_type = 1
	_, err = DecodeSPS(fromHex(t, "42001ed0"))
	require.ErrorIs(t, err, ErrUnsupported)

	// pic_width_in_mbs = 1<<20
	_, err = DecodeSPS(fromHex(t, "42001edc0000100000c0"))
	require.ErrorIs(t, err, ErrMalformed)

	// crop (44+44)*2 == width 176
	_, err = DecodeSPS(fromHex(t, "42001edc2c4f05a0b7"))
	require.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeNALU(t *testing.T) {
	for _, test := range []struct {
		b64    string
		width  uint
		height uint
	}{
		{"Z0IAMukAUAHjQgAAB9IAAOqcCAA=", 2560, 1920},                     // Amcrest AD410
		{"R00AKZmgHgCJ+WEAAAMD6AAATiCE", 1920, 1080},                     // Sonoff
		{"Z01AMqaAKAC1kAA=", 2560, 1440},                                 // Dahua
		{"Z2QAM6wVFKAoAPGQ", 2560, 1920},                                 // Reolink
		{"Z2QAKKwa0AoAt03AQEBQAAADABAAAAMB6PFCKg==", 1280, 720},          // TP-Link
		{"Z2QAFqwa0BQF/yzcBAQFAAADAAEAAAMAHo8UIqA=", 640, 360},           // TP-Link sub
	} {
		b, err := base64.StdEncoding.DecodeString(test.b64)
		require.Nil(t, err)

		sps, err := DecodeNALU(b)
		require.Nil(t, err)
		require.Equal(t, test.width, sps.WidthCropped, test.b64)
		require.Equal(t, test.height, sps.HeightCropped, test.b64)
	}

	// 1088 rows coded, 8 cropped at the bottom
	b, _ := base64.StdEncoding.DecodeString("R00AKZmgHgCJ+WEAAAMD6AAATiCE")
	sps, err := DecodeNALU(b)
	require.Nil(t, err)
	require.Equal(t, uint(2), sps.PicOrderCntType)
	require.Equal(t, uint(1088), sps.Height)
	require.True(t, sps.FrameCropping)
	require.Equal(t, uint(8), sps.FrameCropBottomOffset)

	// not an SPS NAL unit
	_, err = DecodeNALU([]byte{0x68, 0xCE, 0x3C, 0x80})
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = DecodeNALU(nil)
	require.ErrorIs(t, err, ErrInvalidArgument)
}
