package foliagedb

import (
	"fmt"
	"hash/crc32"

	"github.com/golang/snappy"
	"github.com/pierrec/lz4/v4"
)

// compress compresses data using the specified algorithm. It returns the
// algorithm actually used, which is CompressionNone when the data does not
// compress.
func compress(data []byte, compression CompressionType) ([]byte, CompressionType) {
	if len(data) == 0 {
		return nil, CompressionNone
	}

	switch compression {
	case CompressionLZ4:
		if out, ok := compressLZ4(data); ok {
			return out, CompressionLZ4
		}
		return data, CompressionNone
	case CompressionSnappy:
		return snappy.Encode(nil, data), CompressionSnappy
	default:
		return data, CompressionNone
	}
}

// decompress decompresses data using the specified algorithm. size is the
// length of the uncompressed data.
func decompress(data []byte, compression CompressionType, size int) ([]byte, error) {
	switch compression {
	case CompressionNone:
		return data, nil
	case CompressionLZ4:
		dst := make([]byte, size)
		n, err := lz4.UncompressBlock(data, dst)
		if err != nil {
			return nil, fmt.Errorf("lz4: %w", err)
		}
		return dst[:n], nil
	case CompressionSnappy:
		decoded, err := snappy.Decode(nil, data)
		if err != nil {
			return nil, fmt.Errorf("snappy: %w", err)
		}
		return decoded, nil
	default:
		return nil, fmt.Errorf("unknown compression type %d", compression)
	}
}

// compressLZ4 compresses data as a single LZ4 block. It returns false if the
// data is incompressible.
func compressLZ4(data []byte) ([]byte, bool) {
	// LZ4 compressed size is at most slightly larger than source
	dst := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, dst, nil)
	if err != nil || n == 0 {
		return nil, false
	}
	return dst[:n], true
}

// computeCRC32 computes a CRC32 checksum of the data.
func computeCRC32(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}
