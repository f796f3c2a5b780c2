package store

import (
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// Session blobs are framed in Mozilla's mozlz4 layout: 8-byte magic
// "mozLz40\x00" + 4-byte LE uint32 uncompressed size + one lz4 block.
// The same framing is used by the legacy session archives this store
// migrates from.
var mozLz4Magic = []byte("mozLz40\x00")

const mozLz4HeaderSize = 12 // 8 magic + 4 size

// compressBlob frames and compresses a session blob for storage.
func compressBlob(data []byte) ([]byte, error) {
	bound := lz4.CompressBlockBound(len(data))
	buf := make([]byte, mozLz4HeaderSize+bound)
	copy(buf, mozLz4Magic)
	binary.LittleEndian.PutUint32(buf[8:], uint32(len(data)))

	if len(data) == 0 {
		return buf[:mozLz4HeaderSize], nil
	}

	var c lz4.Compressor
	n, err := c.CompressBlock(data, buf[mozLz4HeaderSize:])
	if err != nil {
		return nil, fmt.Errorf("mozlz4: compress failed: %w", err)
	}
	return buf[:mozLz4HeaderSize+n], nil
}

// decompressBlob unframes and decompresses a stored session blob.
// The format is: 8-byte magic "mozLz40\x00" + 4-byte LE uint32 uncompressed size + lz4 block data.
func decompressBlob(data []byte) ([]byte, error) {
	if len(data) < mozLz4HeaderSize {
		return nil, fmt.Errorf("mozlz4: data too short (%d bytes)", len(data))
	}

	// Verify magic header.
	for i := 0; i < len(mozLz4Magic); i++ {
		if data[i] != mozLz4Magic[i] {
			return nil, fmt.Errorf("mozlz4: invalid header magic")
		}
	}

	// Read uncompressed size (4-byte little-endian uint32).
	uncompressedSize := binary.LittleEndian.Uint32(data[8:12])
	if uncompressedSize == 0 {
		return []byte{}, nil
	}

	dst := make([]byte, uncompressedSize)
	n, err := lz4.UncompressBlock(data[mozLz4HeaderSize:], dst)
	if err != nil {
		return nil, fmt.Errorf("mozlz4: decompress failed: %w", err)
	}

	return dst[:n], nil
}
