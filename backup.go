package foliagedb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// backupMagic starts every backup file.
const backupMagic = "FBAK"

// backupHeaderSize is magic (4) + compression (1) + crc32 (4) + length (4).
const backupHeaderSize = 4 + 1 + 4 + 4

// ErrBackupCorrupt is returned when a backup fails its checksum or cannot be
// parsed.
var ErrBackupCorrupt = errors.New("foliagedb: backup corrupt")

// writeBackup stores a compressed copy of the foliage file at src in dst.
func writeBackup(src, dst string, compression CompressionType) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read foliage file: %w", err)
	}
	payload, used := compress(data, compression)

	buf := make([]byte, 0, backupHeaderSize+len(payload))
	buf = append(buf, backupMagic...)
	buf = append(buf, byte(used))
	buf = binary.LittleEndian.AppendUint32(buf, computeCRC32(data))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(data)))
	buf = append(buf, payload...)
	return os.WriteFile(dst, buf, 0666)
}

// readBackup returns the uncompressed contents of a backup file.
func readBackup(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(raw) < backupHeaderSize || string(raw[:4]) != backupMagic {
		return nil, fmt.Errorf("%w: invalid header", ErrBackupCorrupt)
	}
	compression := CompressionType(raw[4])
	crc := binary.LittleEndian.Uint32(raw[5:])
	size := int(binary.LittleEndian.Uint32(raw[9:]))

	data, err := decompress(raw[backupHeaderSize:], compression, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackupCorrupt, err)
	}
	if len(data) != size || computeCRC32(data) != crc {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrBackupCorrupt)
	}
	return data, nil
}

// RestoreBackup replaces the foliage file of the level directory passed with
// the contents of its backup. The DB of that level must be closed.
func RestoreBackup(dir string) error {
	data, err := readBackup(backupPath(dir))
	if err != nil {
		return fmt.Errorf("restore backup: %w", err)
	}
	if err := os.WriteFile(dataPath(dir), data, 0666); err != nil {
		return fmt.Errorf("restore backup: %w", err)
	}
	return nil
}
