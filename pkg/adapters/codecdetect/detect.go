// Package codecdetect maps MP4 sample entries to index formats and extracts
// their codec configuration records.
package codecdetect

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/user/framefetch/pkg/index"
)

// FromFourCC returns the format for a sample entry four-character code.
func FromFourCC(code string) index.Format {
	switch code {
	case "avc1", "avc3":
		return index.FormatH264
	case "hvc1", "hev1":
		return index.FormatHEVC
	case "av01":
		return index.FormatAV1
	default:
		return index.FormatUnknown
	}
}

// configBoxes lists the configuration child box for each format.
var configBoxes = map[index.Format]string{
	index.FormatH264: "avcC",
	index.FormatHEVC: "hvcC",
	index.FormatAV1:  "av1C",
}

// VisualEntry returns the first visual sample entry of an stsd box.
func VisualEntry(stsd *mp4.StsdBox) (*mp4.VisualSampleEntryBox, bool) {
	if stsd == nil {
		return nil, false
	}
	for _, child := range stsd.Children {
		if entry, ok := child.(*mp4.VisualSampleEntryBox); ok {
			return entry, true
		}
	}
	return nil, false
}

// ConfigRecord returns the body of the codec configuration box of entry,
// without its box header. It returns nil when the format carries none.
func ConfigRecord(entry *mp4.VisualSampleEntryBox) ([]byte, error) {
	name, ok := configBoxes[FromFourCC(entry.Type())]
	if !ok {
		return nil, nil
	}

	var cfg mp4.Box
	if name == "avcC" && entry.AvcC != nil {
		cfg = entry.AvcC
	} else {
		for _, child := range entry.Children {
			if child.Type() == name {
				cfg = child
				break
			}
		}
	}
	if cfg == nil {
		return nil, fmt.Errorf("sample entry %s has no %s box", entry.Type(), name)
	}

	var buf bytes.Buffer
	if err := cfg.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	data := buf.Bytes()
	hdr := 8
	if binary.BigEndian.Uint32(data[0:4]) == 1 {
		hdr = 16
	}
	if len(data) < hdr {
		return nil, fmt.Errorf("%s box too short", name)
	}
	return data[hdr:], nil
}
