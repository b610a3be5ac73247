package journal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io/fs"
	"os"
	"time"

	"github.com/golang/snappy"
	"golang.org/x/exp/mmap"

	"github.com/dd0wney/jmri-panelmerge/pkg/faults"
)

// Entry is a decoded journal frame.
type Entry struct {
	Seq       uint64
	Op        Op
	Timestamp time.Time
	Record    *Record
}

// ReadAll decodes every frame of the journal at path. A missing file is an empty journal.
// A torn or corrupt frame is a format fault naming its sequence number.
func ReadAll(path string) ([]*Entry, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	r, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to map journal: %w", err)
	}
	defer r.Close()

	var entries []*Entry
	var offset int64
	size := int64(r.Len())
	for offset < size {
		e, n, err := readFrame(r, offset, size)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
		offset += int64(n)
	}
	return entries, nil
}

// Replay calls fn for every entry in order, stopping at the first error.
func Replay(path string, fn func(*Entry) error) error {
	entries, err := ReadAll(path)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

func frameError(seq uint64, detail string) error {
	return faults.New("read-journal").
		Node("frame").
		Key(fmt.Sprintf("%d", seq)).
		Context(detail).
		Cause(faults.ErrFormat).
		Err()
}

func readFrame(r *mmap.ReaderAt, offset, size int64) (*Entry, int, error) {
	if size-offset < frameOverhead {
		return nil, 0, frameError(0, "truncated frame header")
	}
	var hdr [13]byte
	if _, err := r.ReadAt(hdr[:], offset); err != nil {
		return nil, 0, err
	}
	seq := binary.BigEndian.Uint64(hdr[0:8])
	op := Op(hdr[8])
	dataLen := int64(binary.BigEndian.Uint32(hdr[9:13]))
	if size-offset < frameOverhead+dataLen {
		return nil, 0, frameError(seq, "truncated frame body")
	}

	data := make([]byte, dataLen)
	if _, err := r.ReadAt(data, offset+13); err != nil {
		return nil, 0, err
	}
	var tail [12]byte
	if _, err := r.ReadAt(tail[:], offset+13+dataLen); err != nil {
		return nil, 0, err
	}
	if crc32.ChecksumIEEE(data) != binary.BigEndian.Uint32(tail[0:4]) {
		return nil, 0, frameError(seq, "checksum mismatch")
	}

	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, 0, frameError(seq, "decompress: "+err.Error())
	}
	rec, err := decodeRecord(raw)
	if err != nil {
		return nil, 0, frameError(seq, "decode: "+err.Error())
	}

	return &Entry{
		Seq:       seq,
		Op:        op,
		Timestamp: time.Unix(int64(binary.BigEndian.Uint64(tail[4:12])), 0),
		Record:    rec,
	}, int(frameOverhead + dataLen), nil
}
