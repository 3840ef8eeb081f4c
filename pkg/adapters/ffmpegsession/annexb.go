package ffmpegsession

import (
	"encoding/binary"
	"fmt"

	"github.com/Eyevinn/mp4ff/avc"
	"github.com/user/framefetch/pkg/ports"
)

var startCode = []byte{0, 0, 0, 1}

// ParameterSets returns the SPS and PPS NAL units of an
// AVCDecoderConfigurationRecord as one Annex B byte sequence.
func ParameterSets(metadata []byte) ([]byte, error) {
	if len(metadata) < 7 {
		return nil, fmt.Errorf("avcC of %d bytes is too short", len(metadata))
	}
	rec, err := avc.DecodeAVCDecConfRec(metadata)
	if err != nil {
		return nil, fmt.Errorf("parse avcC: %w", err)
	}
	if len(rec.SPSnalus) == 0 || len(rec.PPSnalus) == 0 {
		return nil, fmt.Errorf("avcC carries %d SPS and %d PPS", len(rec.SPSnalus), len(rec.PPSnalus))
	}
	var out []byte
	for _, sps := range rec.SPSnalus {
		out = append(out, startCode...)
		out = append(out, sps...)
	}
	for _, pps := range rec.PPSnalus {
		out = append(out, startCode...)
		out = append(out, pps...)
	}
	return out, nil
}

// AnnexB converts the samples of unit into an H.264 elementary stream,
// repeating the parameter sets before every keyframe.
func AnnexB(unit ports.DecodeUnit, paramSets []byte) ([]byte, error) {
	out := make([]byte, 0, len(unit.Data)+len(paramSets)*len(unit.Keyframes))
	for sample := unit.StartSample; sample <= unit.EndSample; sample++ {
		if unit.IsKeyframe(sample) {
			out = append(out, paramSets...)
		}
		var err error
		out, err = appendNALUs(out, unit.SampleData(sample))
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", sample, err)
		}
	}
	return out, nil
}

// appendNALUs rewrites 4-byte length prefixes as start codes.
func appendNALUs(dst, data []byte) ([]byte, error) {
	for off := 0; off < len(data); {
		if off+4 > len(data) {
			return nil, fmt.Errorf("truncated NAL length at byte %d", off)
		}
		n := int(binary.BigEndian.Uint32(data[off : off+4]))
		off += 4
		if n > len(data)-off {
			return nil, fmt.Errorf("NAL of %d bytes overruns sample at byte %d", n, off)
		}
		dst = append(dst, startCode...)
		dst = append(dst, data[off:off+n]...)
		off += n
	}
	return dst, nil
}
