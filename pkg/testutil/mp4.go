// Package testutil synthesizes small MP4 files for tests.
//
// The files carry a real box structure (ftyp, moov, mdat, moof) with an
// avc1 sample entry, but sample payloads are not decodable video. Each
// sample is a single length-prefixed NAL unit whose body starts with the
// sample's index, so tests can check that the right bytes reached a decoder.
// The index is stored bit-inverted so the body never contains a start code.
package testutil

import (
	"encoding/binary"
)

// Baseline-profile parameter sets used by every synthesized file.
var (
	DefaultSPS = []byte{0x67, 0x42, 0xc0, 0x1e, 0xda, 0x02, 0x80, 0xbf, 0xe5, 0x84, 0x00, 0x00, 0x03, 0x00, 0x04, 0x00, 0x00, 0x03, 0x00, 0xf0, 0x3c, 0x58, 0xba, 0x80}
	DefaultPPS = []byte{0x68, 0xce, 0x3c, 0x80}
)

// MinSampleSize is the smallest sample the synthesizer can write.
const MinSampleSize = 9

const (
	chunkGap    = 5 // filler bytes written between progressive chunks
	nonSyncFlag = 0x00010000
	syncFlags   = 0x02000000
)

// VideoSpec describes the file to synthesize.
type VideoSpec struct {
	Width  uint16
	Height uint16

	// SampleSizes holds one size per sample; each must be >= MinSampleSize.
	SampleSizes []uint32

	// Keyframes lists zero-based keyframe samples. When nil the stss box is
	// omitted, which marks every sample as a keyframe.
	Keyframes []int

	// SamplesPerChunk groups progressive samples into chunks. Defaults to 1.
	SamplesPerChunk int

	// Fragmented writes an empty moov with mvex followed by moof/mdat pairs
	// holding SamplesPerFragment samples each (default 4).
	Fragmented         bool
	SamplesPerFragment int

	// FirstChunkOffset, when non-zero, replaces the first progressive
	// chunk offset written to stco/co64. The returned offsets are not
	// adjusted.
	FirstChunkOffset uint64

	// ImplicitTrafBase splits each fragment over two video trafs whose tfhd
	// carries no base flags, so the second continues after the first. With
	// AudioTrack an audio traf is written before them.
	ImplicitTrafBase bool

	MoovAtEnd      bool
	Co64           bool
	AudioTrack     bool
	ExtraVideo     bool
	LeadingFree    int // size of a free box written after ftyp
	OmitFtyp       bool
	OmitStsz       bool
	OmitStsc       bool
	OmitStco       bool
	Stz2           bool
	OmitAvcC       bool
	StssOutOfRange bool
}

// Video is a synthesized file together with the index it should produce.
type Video struct {
	Data          []byte
	SampleOffsets []uint64
	SampleSizes   []uint64
	Keyframes     []uint64
	Metadata      []byte
}

// Sizes returns n varied sample sizes, all at least MinSampleSize.
func Sizes(n int) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = uint32(MinSampleSize + (i*37)%120)
	}
	return out
}

// SampleIndex extracts the sample index written into a synthesized sample.
func SampleIndex(sample []byte) (int64, bool) {
	if len(sample) < MinSampleSize {
		return 0, false
	}
	n := binary.BigEndian.Uint32(sample[0:4])
	if int(n)+4 != len(sample) {
		return 0, false
	}
	return int64(^binary.BigEndian.Uint32(sample[5:9])), true
}

// AvcC returns the AVCDecoderConfigurationRecord for the default parameter sets.
func AvcC() []byte {
	return avcCPayload(DefaultSPS, DefaultPPS)
}

// BuildMP4 synthesizes a file from spec.
func BuildMP4(spec VideoSpec) Video {
	if spec.Width == 0 {
		spec.Width = 320
	}
	if spec.Height == 0 {
		spec.Height = 240
	}
	if spec.SamplesPerChunk <= 0 {
		spec.SamplesPerChunk = 1
	}
	if spec.SamplesPerFragment <= 0 {
		spec.SamplesPerFragment = 4
	}

	v := Video{Metadata: AvcC()}
	for _, s := range spec.SampleSizes {
		v.SampleSizes = append(v.SampleSizes, uint64(s))
	}
	if spec.Keyframes == nil {
		for i := range spec.SampleSizes {
			v.Keyframes = append(v.Keyframes, uint64(i))
		}
	} else {
		for _, k := range spec.Keyframes {
			v.Keyframes = append(v.Keyframes, uint64(k))
		}
	}

	if spec.Fragmented {
		v.Data, v.SampleOffsets = buildFragmented(spec)
	} else {
		v.Data, v.SampleOffsets = buildProgressive(spec)
	}
	return v
}

func buildProgressive(spec VideoSpec) ([]byte, []uint64) {
	var head []byte
	if !spec.OmitFtyp {
		head = append(head, ftyp()...)
	}
	if spec.LeadingFree > 0 {
		head = append(head, box("free", make([]byte, spec.LeadingFree))...)
	}

	// Lay out chunks inside the mdat payload, relative to its start.
	var payload []byte
	var chunkRel []uint64
	var rel []uint64
	for i, size := range spec.SampleSizes {
		if i%spec.SamplesPerChunk == 0 {
			if i > 0 {
				payload = append(payload, repeat(0xee, chunkGap)...)
			}
			chunkRel = append(chunkRel, uint64(len(payload)))
		}
		rel = append(rel, uint64(len(payload)))
		payload = append(payload, sample(i, size)...)
	}
	mdat := box("mdat", payload)

	// The moov size does not depend on the offset values, so measure it
	// with placeholders first.
	moovLen := len(progressiveMoov(spec, make([]uint64, len(chunkRel))))

	var mdatStart uint64
	if spec.MoovAtEnd {
		mdatStart = uint64(len(head))
	} else {
		mdatStart = uint64(len(head) + moovLen)
	}
	dataStart := mdatStart + 8

	chunks := make([]uint64, len(chunkRel))
	for i, c := range chunkRel {
		chunks[i] = dataStart + c
	}
	offsets := make([]uint64, len(rel))
	for i, r := range rel {
		offsets[i] = dataStart + r
	}

	if spec.FirstChunkOffset != 0 && len(chunks) > 0 {
		chunks[0] = spec.FirstChunkOffset
	}
	moov := progressiveMoov(spec, chunks)
	out := append([]byte(nil), head...)
	if spec.MoovAtEnd {
		out = append(out, mdat...)
		out = append(out, moov...)
	} else {
		out = append(out, moov...)
		out = append(out, mdat...)
	}
	return out, offsets
}

func progressiveMoov(spec VideoSpec, chunks []uint64) []byte {
	n := len(spec.SampleSizes)
	var tables [][]byte

	tables = append(tables, stsd(spec))
	tables = append(tables, stts(n))
	if spec.Keyframes != nil {
		nums := make([]uint32, 0, len(spec.Keyframes))
		for _, k := range spec.Keyframes {
			nums = append(nums, uint32(k+1))
		}
		if spec.StssOutOfRange {
			nums = append(nums, uint32(n+5))
		}
		tables = append(tables, stss(nums))
	}
	if !spec.OmitStsc {
		tables = append(tables, stsc(n, spec.SamplesPerChunk))
	}
	switch {
	case spec.Stz2:
		tables = append(tables, fullBox("stz2", 0, 0, u32(16), u32(uint32(n))))
	case !spec.OmitStsz:
		tables = append(tables, stsz(spec.SampleSizes))
	}
	if !spec.OmitStco {
		if spec.Co64 {
			tables = append(tables, co64(chunks))
		} else {
			tables = append(tables, stco(chunks))
		}
	}

	traks := [][]byte{trak(1, "vide", tables)}
	if spec.ExtraVideo {
		traks = append(traks, trak(2, "vide", [][]byte{stsd(spec), stts(0), stsc(0, 1), stsz(nil), stco(nil)}))
	}
	if spec.AudioTrack {
		traks = append(traks, trak(3, "soun", [][]byte{fullBox("stsd", 0, 0, u32(0)), stts(0), stsc(0, 1), stsz(nil), stco(nil)}))
	}
	return box("moov", concat(traks...))
}

func buildFragmented(spec VideoSpec) ([]byte, []uint64) {
	out := append([]byte(nil), ftyp()...)

	tables := [][]byte{stsd(spec), stts(0), stsc(0, 1), stsz(nil), stco(nil)}
	trex := fullBox("trex", 0, 0, u32(1), u32(1), u32(1000), u32(0), u32(nonSyncFlag))
	moovParts := [][]byte{trak(1, "vide", tables)}
	if spec.AudioTrack {
		moovParts = append(moovParts, trak(3, "soun", [][]byte{fullBox("stsd", 0, 0, u32(0)), stts(0), stsc(0, 1), stsz(nil), stco(nil)}))
	}
	moovParts = append(moovParts, box("mvex", trex))
	out = append(out, box("moov", concat(moovParts...))...)

	key := make(map[int]bool)
	for _, k := range spec.Keyframes {
		key[k] = true
	}
	isKey := func(i int) bool { return spec.Keyframes == nil || key[i] }

	var offsets []uint64
	seq := uint32(1)
	for start := 0; start < len(spec.SampleSizes); start += spec.SamplesPerFragment {
		end := start + spec.SamplesPerFragment
		if end > len(spec.SampleSizes) {
			end = len(spec.SampleSizes)
		}
		sizes := spec.SampleSizes[start:end]

		makeMoof := func(dataOffset int32) []byte {
			if spec.ImplicitTrafBase {
				return implicitMoof(seq, dataOffset, sizes, start, isKey, spec.AudioTrack)
			}
			return moof(seq, dataOffset, sizes, start, isKey)
		}
		dataOffset := int32(len(makeMoof(0)) + 8)
		moofStart := uint64(len(out))

		var payload []byte
		for i, size := range sizes {
			offsets = append(offsets, moofStart+uint64(dataOffset)+uint64(len(payload)))
			payload = append(payload, sample(start+i, size)...)
		}
		out = append(out, makeMoof(dataOffset)...)
		out = append(out, box("mdat", payload)...)
		seq++
	}
	return out, offsets
}

func moof(seq uint32, dataOffset int32, sizes []uint32, first int, isKey func(int) bool) []byte {
	mfhd := fullBox("mfhd", 0, 0, u32(seq))
	// default-base-is-moof
	tfhd := fullBox("tfhd", 0, 0x020000, u32(1))
	trun := trunBox(sizes, first, isKey, &dataOffset)

	return box("moof", concat(mfhd, box("traf", concat(tfhd, trun))))
}

func implicitMoof(seq uint32, dataOffset int32, sizes []uint32, first int, isKey func(int) bool, audio bool) []byte {
	mfhd := fullBox("mfhd", 0, 0, u32(seq))
	var trafs [][]byte
	if audio {
		// data-offset and sample-size present
		trun := fullBox("trun", 0, 0x000001|0x000200, u32(1), u32(uint32(dataOffset)), u32(4))
		trafs = append(trafs, box("traf", concat(fullBox("tfhd", 0, 0, u32(3)), trun)))
	}
	half := (len(sizes) + 1) / 2
	trafs = append(trafs,
		box("traf", concat(fullBox("tfhd", 0, 0, u32(1)), trunBox(sizes[:half], first, isKey, &dataOffset))),
		box("traf", concat(fullBox("tfhd", 0, 0, u32(1)), trunBox(sizes[half:], first+half, isKey, nil))),
	)
	return box("moof", concat(mfhd, concat(trafs...)))
}

// trunBox writes sample-size and sample-flags, plus data-offset when
// dataOffset is not nil.
func trunBox(sizes []uint32, first int, isKey func(int) bool, dataOffset *int32) []byte {
	flags := uint32(0x000200 | 0x000400)
	entries := [][]byte{u32(uint32(len(sizes)))}
	if dataOffset != nil {
		flags |= 0x000001
		entries = append(entries, u32(uint32(*dataOffset)))
	}
	for i, size := range sizes {
		sampleFlags := uint32(nonSyncFlag)
		if isKey(first + i) {
			sampleFlags = syncFlags
		}
		entries = append(entries, u32(size), u32(sampleFlags))
	}
	return fullBox("trun", 0, flags, entries...)
}

func trak(id uint32, handler string, tables [][]byte) []byte {
	tkhd := fullBox("tkhd", 0, 3,
		u32(0), u32(0), u32(id), u32(0), u32(0), // times, track id, reserved, duration
		make([]byte, 8), // reserved
		u16(0), u16(0), u16(0), u16(0), // layer, alternate group, volume, reserved
		matrix(),
		u32(0), u32(0), // width, height
	)
	hdlr := fullBox("hdlr", 0, 0, u32(0), []byte(handler), make([]byte, 12), []byte("Handler\x00"))
	stbl := box("stbl", concat(tables...))
	minf := box("minf", stbl)
	mdia := box("mdia", concat(hdlr, minf))
	return box("trak", concat(tkhd, mdia))
}

func stsd(spec VideoSpec) []byte {
	var children []byte
	if !spec.OmitAvcC {
		children = box("avcC", AvcC())
	}
	avc1 := box("avc1", concat(
		make([]byte, 6), u16(1), // reserved, data reference index
		u16(0), u16(0), make([]byte, 12), // pre-defined and reserved
		u16(spec.Width), u16(spec.Height),
		u32(0x00480000), u32(0x00480000), u32(0), // resolution, reserved
		u16(1), make([]byte, 32), // frame count, compressor name
		u16(0x0018), u16(0xffff), // depth, pre-defined
		children,
	))
	return fullBox("stsd", 0, 0, u32(1), avc1)
}

func stts(n int) []byte {
	if n == 0 {
		return fullBox("stts", 0, 0, u32(0))
	}
	return fullBox("stts", 0, 0, u32(1), u32(uint32(n)), u32(1000))
}

func stss(nums []uint32) []byte {
	parts := [][]byte{u32(uint32(len(nums)))}
	for _, n := range nums {
		parts = append(parts, u32(n))
	}
	return fullBox("stss", 0, 0, parts...)
}

func stsc(n, perChunk int) []byte {
	if n == 0 {
		return fullBox("stsc", 0, 0, u32(0))
	}
	full := n / perChunk
	rem := n % perChunk
	var entries [][]byte
	if full > 0 {
		entries = append(entries, u32(1), u32(uint32(perChunk)), u32(1))
	}
	if rem > 0 {
		entries = append(entries, u32(uint32(full+1)), u32(uint32(rem)), u32(1))
	}
	count := uint32(len(entries) / 3)
	return fullBox("stsc", 0, 0, append([][]byte{u32(count)}, entries...)...)
}

func stsz(sizes []uint32) []byte {
	parts := [][]byte{u32(0), u32(uint32(len(sizes)))}
	for _, s := range sizes {
		parts = append(parts, u32(s))
	}
	return fullBox("stsz", 0, 0, parts...)
}

func stco(chunks []uint64) []byte {
	parts := [][]byte{u32(uint32(len(chunks)))}
	for _, c := range chunks {
		parts = append(parts, u32(uint32(c)))
	}
	return fullBox("stco", 0, 0, parts...)
}

func co64(chunks []uint64) []byte {
	parts := [][]byte{u32(uint32(len(chunks)))}
	for _, c := range chunks {
		parts = append(parts, u64(c))
	}
	return fullBox("co64", 0, 0, parts...)
}

func ftyp() []byte {
	return box("ftyp", concat([]byte("isom"), u32(0x200), []byte("isomiso2avc1mp41")))
}

func avcCPayload(sps, pps []byte) []byte {
	return concat(
		[]byte{1, sps[1], sps[2], sps[3], 0xff, 0xe1},
		u16(uint16(len(sps))), sps,
		[]byte{1},
		u16(uint16(len(pps))), pps,
	)
}

// sample writes one AVCC NAL unit of exactly size bytes.
func sample(i int, size uint32) []byte {
	out := make([]byte, size)
	binary.BigEndian.PutUint32(out[0:4], size-4)
	out[4] = 0x41
	binary.BigEndian.PutUint32(out[5:9], ^uint32(i))
	for j := MinSampleSize; j < len(out); j++ {
		out[j] = byte(i + j)
	}
	return out
}

func box(typ string, payload []byte) []byte {
	out := make([]byte, 8, 8+len(payload))
	binary.BigEndian.PutUint32(out[0:4], uint32(8+len(payload)))
	copy(out[4:8], typ)
	return append(out, payload...)
}

func fullBox(typ string, version byte, flags uint32, parts ...[]byte) []byte {
	vf := u32(flags & 0x00ffffff)
	vf[0] = version
	return box(typ, concat(append([][]byte{vf}, parts...)...))
}

func matrix() []byte {
	return concat(
		u32(0x00010000), u32(0), u32(0),
		u32(0), u32(0x00010000), u32(0),
		u32(0), u32(0), u32(0x40000000),
	)
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func repeat(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

func u16(v uint16) []byte {
	out := make([]byte, 2)
	binary.BigEndian.PutUint16(out, v)
	return out
}

func u32(v uint32) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, v)
	return out
}

func u64(v uint64) []byte {
	out := make([]byte, 8)
	binary.BigEndian.PutUint64(out, v)
	return out
}
