package dataio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the snapshot block codec.
type Compression uint8

const (
	// CompressionNone stores the payload as is.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression.
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses ZSTD.
	CompressionZSTD Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ErrUnknownCompression is returned for unsupported compression codes.
var ErrUnknownCompression = errors.New("dataio: unknown compression")

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil)
}

// blockHeaderSize covers [raw uint64][stored uint64]. stored == 0 marks an
// uncompressed block.
const blockHeaderSize = 16

// compressBlock frames data, compressing it when that saves space.
func compressBlock(data []byte, c Compression) ([]byte, error) {
	var packed []byte
	switch c {
	case CompressionNone:
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		packed = buf[:n]
	case CompressionZSTD:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, err
		}
		packed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, c)
	}

	out := make([]byte, blockHeaderSize, blockHeaderSize+len(data))
	binary.LittleEndian.PutUint64(out[0:], uint64(len(data)))
	if len(packed) == 0 || len(packed) >= len(data) {
		return append(out, data...), nil
	}
	binary.LittleEndian.PutUint64(out[8:], uint64(len(packed)))
	return append(out, packed...), nil
}

func decompressBlock(block []byte, c Compression) ([]byte, error) {
	if len(block) < blockHeaderSize {
		return nil, fmt.Errorf("%w: block too small", ErrMalformed)
	}
	raw := binary.LittleEndian.Uint64(block[0:])
	stored := binary.LittleEndian.Uint64(block[8:])
	body := block[blockHeaderSize:]

	if stored == 0 {
		if uint64(len(body)) != raw {
			return nil, fmt.Errorf("%w: block size mismatch", ErrMalformed)
		}
		return body, nil
	}
	if uint64(len(body)) != stored {
		return nil, fmt.Errorf("%w: compressed size mismatch", ErrMalformed)
	}

	switch c {
	case CompressionLZ4:
		out := make([]byte, raw)
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if uint64(n) != raw {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrMalformed)
		}
		return out, nil
	case CompressionZSTD:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, err
		}
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(body, make([]byte, 0, raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if uint64(len(out)) != raw {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrMalformed)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, c)
	}
}
