package index

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

// Serialized layout:
//
//	magic   [4]byte  "FFIX"
//	version uint8    1
//	payload          zstd frame of a CBOR record
//
// Offsets dominate the payload and compress well, so the record is
// compressed as a whole.
const (
	formatVersion = 1
	headerSize    = 5
)

var magic = [4]byte{'F', 'F', 'I', 'X'}

var (
	// ErrBadMagic is returned when data does not start with the index magic.
	ErrBadMagic = errors.New("index: not a serialized index")

	// ErrVersion is returned for serialized indexes of an unknown version.
	ErrVersion = errors.New("index: unsupported serialization version")
)

// record is the CBOR shape of an Index. Integer keys keep the payload small.
type record struct {
	SampleOffsets   []uint64 `cbor:"1,keyasint"`
	SampleSizes     []uint64 `cbor:"2,keyasint"`
	KeyframeIndices []uint64 `cbor:"3,keyasint"`
	FrameWidth      uint32   `cbor:"4,keyasint"`
	FrameHeight     uint32   `cbor:"5,keyasint"`
	Format          string   `cbor:"6,keyasint"`
	Metadata        []byte   `cbor:"7,keyasint"`
}

var (
	encMode     cbor.EncMode
	decMode     cbor.DecMode
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("index: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		MaxArrayElements: 1<<31 - 1,
	}.DecMode()
	if err != nil {
		panic("index: CBOR decoder initialization failed: " + err.Error())
	}
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("index: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("index: zstd decoder initialization failed: " + err.Error())
	}
}

// Marshal serializes the index.
func Marshal(x *Index) ([]byte, error) {
	payload, err := encMode.Marshal(record{
		SampleOffsets:   x.SampleOffsets,
		SampleSizes:     x.SampleSizes,
		KeyframeIndices: x.KeyframeIndices,
		FrameWidth:      x.FrameWidth,
		FrameHeight:     x.FrameHeight,
		Format:          string(x.Format),
		Metadata:        x.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("encode index: %w", err)
	}

	out := make([]byte, headerSize, headerSize+len(payload)/2)
	copy(out, magic[:])
	out[4] = formatVersion
	return zstdEncoder.EncodeAll(payload, out), nil
}

// Unmarshal parses data produced by Marshal and validates the result.
func Unmarshal(data []byte) (*Index, error) {
	if len(data) < headerSize || !bytes.Equal(data[:4], magic[:]) {
		return nil, ErrBadMagic
	}
	if data[4] != formatVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersion, data[4])
	}

	payload, err := zstdDecoder.DecodeAll(data[headerSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("decompress index: %w", err)
	}

	var r record
	if err := decMode.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}

	x := &Index{
		SampleOffsets:   r.SampleOffsets,
		SampleSizes:     r.SampleSizes,
		KeyframeIndices: r.KeyframeIndices,
		FrameWidth:      r.FrameWidth,
		FrameHeight:     r.FrameHeight,
		Format:          Format(r.Format),
		Metadata:        r.Metadata,
	}
	if err := x.Validate(); err != nil {
		return nil, err
	}
	return x, nil
}

// WriteTo writes the serialized index to w.
func (x *Index) WriteTo(w io.Writer) (int64, error) {
	data, err := Marshal(x)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// ReadFrom reads a serialized index from r until EOF.
func ReadFrom(r io.Reader) (*Index, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	return Unmarshal(data)
}
