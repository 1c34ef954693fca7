package h264

import (
	"errors"
	"fmt"

	"github.com/avpack/h264probe/pkg/bits"
)

// http://www.itu.int/rec/T-REC-H.264

var (
	// ErrInvalidArgument - absent or too short input, or not an SPS NAL unit
	ErrInvalidArgument = errors.New("h264: invalid argument")
	// ErrMalformed - truncated bitstream or a field value outside its legal range
	ErrMalformed = errors.New("h264: malformed bitstream")
	// ErrUnsupported - syntax this decoder deliberately does not handle
	ErrUnsupported = errors.New("h264: unsupported feature")
)

const (
	maxSPSCount        = 32
	maxLog2MaxFrameNum = 16
	macroblockSize     = 16
	maxMacroblocks     = 1 << 20
)

// SPS - the geometry-relevant fields of a Sequence Parameter Set.
// Decoding stops once the cropped frame dimensions are known, VUI and
// everything after it is never read.
type SPS struct {
	ProfileIdc uint8
	LevelIdc   uint8

	SeqParameterSetID uint8 // 0..31
	ChromaFormatIdc   uint8 // 0..3, 1 when the profile branch is skipped

	Log2MaxFrameNum uint // 4..16
	PicOrderCntType uint // 0 or 2
	MaxNumRefFrames uint

	PicWidthInMbs       uint
	PicHeightInMapUnits uint

	FrameCropping         bool
	FrameCropLeftOffset   uint // pixels
	FrameCropRightOffset  uint // pixels
	FrameCropTopOffset    uint // pixels
	FrameCropBottomOffset uint // pixels

	Width         uint // pixels, macroblock-aligned
	Height        uint // pixels, macroblock-aligned
	WidthCropped  uint // pixels
	HeightCropped uint // pixels
}

// DecodeSPS decodes the RBSP payload of one SPS NAL unit: the NAL
// header byte must already be stripped and emulation-prevention bytes
// removed (see DecodeNALU for the convenience wrapper).
//
// Any truncation, range violation or unsupported value aborts the
// whole decode, there is no partial result.
func DecodeSPS(rbsp []byte) (*SPS, error) {
	if len(rbsp) < 3 {
		return nil, fmt.Errorf("%w: need at least 3 bytes, got %d", ErrInvalidArgument, len(rbsp))
	}

	sps := &SPS{
		ProfileIdc:      rbsp[0],
		LevelIdc:        rbsp[2],
		ChromaFormatIdc: 1, // 4:2:0 unless the stream says otherwise
	}

	// rbsp[1] holds the constraint flags, not interpreted here
	r := bits.NewReader(rbsp[3:])

	spsID, err := ue(r, "seq_parameter_set_id")
	if err != nil {
		return nil, err
	}
	if spsID >= maxSPSCount {
		return nil, fmt.Errorf("%w: seq_parameter_set_id %d out of range", ErrMalformed, spsID)
	}
	sps.SeqParameterSetID = uint8(spsID)

	switch sps.ProfileIdc {
	case 100, 110, 122, 244, 44, 83, 86, 118, 128, 138, 144:
		chroma, err := ue(r, "chroma_format_idc")
		if err != nil {
			return nil, err
		}
		if chroma > 3 {
			return nil, fmt.Errorf("%w: chroma_format_idc %d out of range", ErrMalformed, chroma)
		}
		sps.ChromaFormatIdc = uint8(chroma)

		if chroma == 3 {
			if _, err = flag(r, "separate_colour_plane_flag"); err != nil {
				return nil, err
			}
		}

		if _, err = ue(r, "bit_depth_luma_minus8"); err != nil {
			return nil, err
		}
		if _, err = ue(r, "bit_depth_chroma_minus8"); err != nil {
			return nil, err
		}
		if _, err = flag(r, "qpprime_y_zero_transform_bypass_flag"); err != nil {
			return nil, err
		}

		present, err := flag(r, "seq_scaling_matrix_present_flag")
		if err != nil {
			return nil, err
		}
		if present != 0 {
			if err = decodeScalingMatrix(r, chroma); err != nil {
				return nil, err
			}
		}
	}

	log2mfn, err := ue(r, "log2_max_frame_num_minus4")
	if err != nil {
		return nil, err
	}
	sps.Log2MaxFrameNum = uint(log2mfn) + 4
	if sps.Log2MaxFrameNum > maxLog2MaxFrameNum {
		return nil, fmt.Errorf("%w: log2_max_frame_num %d out of range", ErrMalformed, sps.Log2MaxFrameNum)
	}

	pocType, err := ue(r, "pic_order_cnt_type")
	if err != nil {
		return nil, err
	}
	sps.PicOrderCntType = uint(pocType)

	switch pocType {
	case 0:
		if _, err = ue(r, "log2_max_pic_order_cnt_lsb_minus4"); err != nil {
			return nil, err
		}
	case 2:
		// type 2 carries no extra fields
	default:
		// type 1 (delta-based POC) stays out of scope
		return nil, fmt.Errorf("%w: pic_order_cnt_type %d", ErrUnsupported, pocType)
	}

	refFrames, err := ue(r, "max_num_ref_frames")
	if err != nil {
		return nil, err
	}
	sps.MaxNumRefFrames = uint(refFrames)

	if _, err = flag(r, "gaps_in_frame_num_value_allowed_flag"); err != nil {
		return nil, err
	}

	widthM1, err := ue(r, "pic_width_in_mbs_minus1")
	if err != nil {
		return nil, err
	}
	heightM1, err := ue(r, "pic_height_in_map_units_minus1")
	if err != nil {
		return nil, err
	}

	frameMbsOnly, err := flag(r, "frame_mbs_only_flag")
	if err != nil {
		return nil, err
	}

	sps.PicWidthInMbs = uint(widthM1) + 1
	// map units are field pairs when the stream may be interlaced
	sps.PicHeightInMapUnits = (uint(heightM1) + 1) * uint(2-frameMbsOnly)

	if sps.PicWidthInMbs >= maxMacroblocks || sps.PicHeightInMapUnits >= maxMacroblocks {
		return nil, fmt.Errorf("%w: macroblock count overflow %dx%d",
			ErrMalformed, sps.PicWidthInMbs, sps.PicHeightInMapUnits)
	}

	if frameMbsOnly == 0 {
		if _, err = flag(r, "mb_adaptive_frame_field_flag"); err != nil {
			return nil, err
		}
	}

	if _, err = flag(r, "direct_8x8_inference_flag"); err != nil {
		return nil, err
	}

	cropping, err := flag(r, "frame_cropping_flag")
	if err != nil {
		return nil, err
	}
	sps.FrameCropping = cropping != 0

	sps.Width = macroblockSize * sps.PicWidthInMbs
	sps.Height = macroblockSize * sps.PicHeightInMapUnits

	if sps.FrameCropping {
		left, err := ue(r, "frame_crop_left_offset")
		if err != nil {
			return nil, err
		}
		right, err := ue(r, "frame_crop_right_offset")
		if err != nil {
			return nil, err
		}
		top, err := ue(r, "frame_crop_top_offset")
		if err != nil {
			return nil, err
		}
		bottom, err := ue(r, "frame_crop_bottom_offset")
		if err != nil {
			return nil, err
		}

		// crop units depend on chroma subsampling and frame/field coding
		var hsub, vsub uint
		if sps.ChromaFormatIdc == 1 {
			vsub = 1
		}
		if sps.ChromaFormatIdc == 1 || sps.ChromaFormatIdc == 2 {
			hsub = 1
		}
		sx := uint(1) << hsub
		sy := uint(2-frameMbsOnly) << vsub

		if (uint(left)+uint(right))*sx >= sps.Width ||
			(uint(top)+uint(bottom))*sy >= sps.Height {
			return nil, fmt.Errorf("%w: crop %d/%d/%d/%d exceeds %dx%d",
				ErrMalformed, left, right, top, bottom, sps.Width, sps.Height)
		}

		sps.FrameCropLeftOffset = sx * uint(left)
		sps.FrameCropRightOffset = sx * uint(right)
		sps.FrameCropTopOffset = sy * uint(top)
		sps.FrameCropBottomOffset = sy * uint(bottom)
	}

	sps.WidthCropped = sps.Width - sps.FrameCropLeftOffset - sps.FrameCropRightOffset
	sps.HeightCropped = sps.Height - sps.FrameCropTopOffset - sps.FrameCropBottomOffset

	return sps, nil
}

// DecodeNALU decodes a whole SPS NAL unit: checks the NAL type, strips
// the header byte and the emulation-prevention bytes, then decodes.
func DecodeNALU(nalu []byte) (*SPS, error) {
	if len(nalu) == 0 {
		return nil, fmt.Errorf("%w: empty NAL unit", ErrInvalidArgument)
	}
	if NALUType(nalu) != NALUTypeSPS {
		return nil, fmt.Errorf("%w: NAL unit type %d is not SPS", ErrInvalidArgument, NALUType(nalu))
	}
	return DecodeSPS(RemoveEmulationBytes(nalu[1:]))
}

// decodeScalingMatrix consumes the seq_scaling_matrix syntax: 8 lists,
// or 12 for 4:4:4 streams. The scales themselves are not retained,
// only the bitstream structure is validated.
func decodeScalingMatrix(r *bits.Reader, chromaFormatIdc uint32) error {
	count := 8
	if chromaFormatIdc == 3 {
		count = 12
	}

	for i := 0; i < count; i++ {
		present, err := flag(r, "seq_scaling_list_present_flag")
		if err != nil {
			return err
		}
		if present == 0 {
			continue
		}

		size := 64
		if i < 6 {
			size = 16
		}
		if _, err = decodeScalingList(r, size); err != nil {
			return err
		}
	}

	return nil
}

// decodeScalingList consumes one scaling list of 16 or 64 entries and
// reports whether the stream asked for the default matrix (first delta
// drives next_scale to zero).
func decodeScalingList(r *bits.Reader, size int) (useDefault bool, err error) {
	lastScale := uint32(8)
	nextScale := uint32(8)

	for j := 0; j < size; j++ {
		if nextScale != 0 {
			delta, err := ue(r, "delta_scale")
			if err != nil {
				return false, err
			}
			nextScale = (lastScale + delta + 256) % 256
			if j == 0 && nextScale == 0 {
				useDefault = true
			}
		}
		if nextScale != 0 {
			lastScale = nextScale
		}
	}

	return
}

func ue(r *bits.Reader, name string) (uint32, error) {
	v, err := r.ReadUEGolomb()
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrMalformed, name)
	}
	return v, nil
}

func flag(r *bits.Reader, name string) (byte, error) {
	if r.Left() < 1 {
		return 0, fmt.Errorf("%w: %s", ErrMalformed, name)
	}
	return r.ReadBit(), nil
}

func (s *SPS) Profile() string {
	switch s.ProfileIdc {
	case 0x42:
		return "Baseline"
	case 0x4D:
		return "Main"
	case 0x58:
		return "Extended"
	case 0x64:
		return "High"
	}
	return fmt.Sprintf("0x%02X", s.ProfileIdc)
}

func (s *SPS) String() string {
	return fmt.Sprintf(
		"%s %d.%d, %dx%d",
		s.Profile(), s.LevelIdc/10, s.LevelIdc%10, s.WidthCropped, s.HeightCropped,
	)
}
