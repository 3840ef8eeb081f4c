package indexer

import (
	"fmt"
	"math"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/user/framefetch/pkg/adapters/codecdetect"
	"github.com/user/framefetch/pkg/index"
)

// Fragment header flags.
const (
	tfhdBaseDataOffset     = 0x000001
	tfhdDefaultSampleSize  = 0x000010
	tfhdDefaultSampleFlags = 0x000020
	tfhdDefaultBaseIsMoof  = 0x020000

	trunDataOffset       = 0x000001
	trunFirstSampleFlags = 0x000004
	trunSampleSize       = 0x000200
	trunSampleFlags      = 0x000400

	sampleIsNonSync = 0x00010000
)

// track holds what the builder keeps of the video track.
type track struct {
	id       uint32
	width    uint32
	height   uint32
	format   index.Format
	metadata []byte

	// Fragment defaults from trex.
	defaultSize  uint32
	defaultFlags uint32
}

func (b *Builder) parseMoov(moov *mp4.MoovBox) error {
	var video *mp4.TrakBox
	for _, trak := range moov.Traks {
		if trak.Mdia == nil || trak.Mdia.Hdlr == nil || trak.Mdia.Hdlr.HandlerType != "vide" {
			continue
		}
		if video != nil {
			return fmt.Errorf("%w: more than one video track", ErrUnsupported)
		}
		video = trak
	}
	if video == nil {
		return fmt.Errorf("%w: no video track", ErrUnsupported)
	}
	if video.Tkhd == nil || video.Mdia.Minf == nil || video.Mdia.Minf.Stbl == nil {
		return fmt.Errorf("%w: video track has no sample table", ErrMalformed)
	}
	stbl := video.Mdia.Minf.Stbl

	entry, ok := codecdetect.VisualEntry(stbl.Stsd)
	if !ok {
		return fmt.Errorf("%w: video track has no visual sample entry", ErrMalformed)
	}
	metadata, err := codecdetect.ConfigRecord(entry)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	b.track = track{
		id:       video.Tkhd.TrackID,
		width:    uint32(entry.Width),
		height:   uint32(entry.Height),
		format:   codecdetect.FromFourCC(entry.Type()),
		metadata: metadata,
	}

	if moov.Mvex != nil {
		b.fragmented = true
		for _, trex := range moov.Mvex.Trexs {
			if trex.TrackID == b.track.id {
				b.track.defaultSize = trex.DefaultSampleSize
				b.track.defaultFlags = trex.DefaultSampleFlags
				break
			}
		}
	}

	return b.readSampleTable(stbl)
}

// readSampleTable appends the samples described by a progressive sample
// table. Fragmented files may carry an empty table.
func (b *Builder) readSampleTable(stbl *mp4.StblBox) error {
	for _, child := range stbl.Children {
		if child.Type() == "stz2" {
			return fmt.Errorf("%w: compact sample sizes (stz2)", ErrUnsupported)
		}
	}
	if stbl.Stsz == nil {
		if b.fragmented {
			return nil
		}
		return fmt.Errorf("%w: missing stsz", ErrMalformed)
	}

	n := int(stbl.Stsz.SampleNumber)
	if n == 0 {
		if b.fragmented {
			return nil
		}
		return fmt.Errorf("%w: video track has no samples", ErrMalformed)
	}
	if stbl.Stsc == nil {
		return fmt.Errorf("%w: missing stsc", ErrMalformed)
	}

	var chunks []uint64
	switch {
	case stbl.Stco != nil:
		chunks = make([]uint64, len(stbl.Stco.ChunkOffset))
		for i, off := range stbl.Stco.ChunkOffset {
			chunks[i] = uint64(off)
		}
	case stbl.Co64 != nil:
		chunks = stbl.Co64.ChunkOffset
	default:
		return fmt.Errorf("%w: missing stco and co64", ErrMalformed)
	}

	if stbl.Stts == nil {
		return fmt.Errorf("%w: missing stts", ErrMalformed)
	}
	var timed uint64
	for _, count := range stbl.Stts.SampleCount {
		timed += uint64(count)
	}
	if timed != uint64(n) {
		return fmt.Errorf("%w: stts covers %d samples, stsz has %d", ErrMalformed, timed, n)
	}

	offsets := make([]uint64, n)
	sizes := make([]uint64, n)
	prevChunk := 0
	var next uint64
	for nr := 1; nr <= n; nr++ {
		chunkNr, _, err := stbl.Stsc.ChunkNrFromSampleNr(nr)
		if err != nil {
			return fmt.Errorf("%w: sample %d: %v", ErrMalformed, nr-1, err)
		}
		if chunkNr < 1 || chunkNr > len(chunks) {
			return fmt.Errorf("%w: sample %d maps to chunk %d of %d", ErrMalformed, nr-1, chunkNr, len(chunks))
		}
		if chunkNr != prevChunk {
			next = chunks[chunkNr-1]
			prevChunk = chunkNr
		}
		size := uint64(stbl.Stsz.GetSampleSize(nr))
		if size > math.MaxUint64-next {
			return fmt.Errorf("%w: sample %d at offset %d with size %d overflows", ErrMalformed, nr-1, next, size)
		}
		offsets[nr-1] = next
		sizes[nr-1] = size
		next += size
	}
	if prevChunk != len(chunks) {
		return fmt.Errorf("%w: samples fill %d of %d chunks", ErrMalformed, prevChunk, len(chunks))
	}

	var keyframes []uint64
	if stbl.Stss == nil {
		keyframes = make([]uint64, n)
		for i := range keyframes {
			keyframes[i] = uint64(i)
		}
	} else {
		keyframes = make([]uint64, 0, len(stbl.Stss.SampleNumber))
		for _, nr := range stbl.Stss.SampleNumber {
			if nr == 0 || int(nr) > n {
				return fmt.Errorf("%w: sync sample %d out of range 1..%d", ErrMalformed, nr, n)
			}
			keyframes = append(keyframes, uint64(nr-1))
		}
	}

	b.offsets = append(b.offsets, offsets...)
	b.sizes = append(b.sizes, sizes...)
	b.keyframes = append(b.keyframes, keyframes...)
	return nil
}

// parseMoof appends the video samples of one movie fragment starting at
// moofStart.
//
// A traf without an explicit base or default-base-is-moof continues where
// the previous traf's data ended; the first traf starts at the moof. That
// end is only known when the previous traf belongs to the video track.
func (b *Builder) parseMoof(moof *mp4.MoofBox, moofStart uint64) error {
	dataEnd := moofStart
	endKnown := true
	for i, traf := range moof.Trafs {
		tfhd := traf.Tfhd
		if tfhd == nil {
			return fmt.Errorf("%w: traf without tfhd at offset %d", ErrMalformed, moofStart)
		}
		if tfhd.TrackID != b.track.id {
			endKnown = false
			continue
		}

		var base uint64
		switch {
		case tfhd.Flags&tfhdBaseDataOffset != 0:
			base = tfhd.BaseDataOffset
		case tfhd.Flags&tfhdDefaultBaseIsMoof != 0 || i == 0:
			base = moofStart
		case endKnown:
			base = dataEnd
		default:
			return fmt.Errorf("%w: traf %d in fragment at %d continues the data of track %d", ErrUnsupported, i, moofStart, moof.Trafs[i-1].Tfhd.TrackID)
		}
		defaultSize := b.track.defaultSize
		if tfhd.Flags&tfhdDefaultSampleSize != 0 {
			defaultSize = tfhd.DefaultSampleSize
		}
		defaultFlags := b.track.defaultFlags
		if tfhd.Flags&tfhdDefaultSampleFlags != 0 {
			defaultFlags = tfhd.DefaultSampleFlags
		}

		next := base
		for _, trun := range traf.Truns {
			if trun.Flags&trunDataOffset != 0 {
				pos := int64(base) + int64(trun.DataOffset)
				if pos < 0 {
					return fmt.Errorf("%w: negative data offset in fragment at %d", ErrMalformed, moofStart)
				}
				next = uint64(pos)
			}
			firstFlags, hasFirst := trun.FirstSampleFlags()
			hasFirst = hasFirst && trun.Flags&trunFirstSampleFlags != 0

			for i, s := range trun.Samples {
				size := defaultSize
				if trun.Flags&trunSampleSize != 0 {
					size = s.Size
				}
				flags := defaultFlags
				switch {
				case trun.Flags&trunSampleFlags != 0:
					flags = s.Flags
				case i == 0 && hasFirst:
					flags = firstFlags
				}

				if uint64(size) > math.MaxUint64-next {
					return fmt.Errorf("%w: sample at offset %d with size %d in fragment at %d overflows", ErrMalformed, next, size, moofStart)
				}
				if flags&sampleIsNonSync == 0 {
					b.keyframes = append(b.keyframes, uint64(len(b.offsets)))
				}
				b.offsets = append(b.offsets, next)
				b.sizes = append(b.sizes, uint64(size))
				next += uint64(size)
			}
		}
		dataEnd = next
		endKnown = true
	}
	return nil
}
