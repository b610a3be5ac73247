package journal

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang/snappy"
)

// Frame layout, big endian:
// [Seq:8][Op:1][DataLen:4][Data:N][Checksum:4][Timestamp:8]
// Data is the snappy-compressed msgpack record and Checksum covers it.
const frameOverhead = 8 + 1 + 4 + 4 + 8

// Writer appends records to a journal file.
type Writer struct {
	file   *os.File
	writer *bufio.Writer
	path   string
	seq    uint64
	mu     sync.Mutex

	written         uint64
	bytesRaw        uint64
	bytesCompressed uint64
}

// Stats reports how much a writer has written since it was opened.
type Stats struct {
	Records         uint64
	BytesRaw        uint64
	BytesCompressed uint64
}

// Open opens or creates the journal at path, continuing its sequence numbers.
func Open(path string) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	var seq uint64
	entries, err := ReadAll(path)
	if err != nil {
		return nil, fmt.Errorf("failed to recover journal sequence: %w", err)
	}
	if len(entries) > 0 {
		seq = entries[len(entries)-1].Seq
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}

	return &Writer{
		file:   file,
		writer: bufio.NewWriter(file),
		path:   path,
		seq:    seq,
	}, nil
}

// Path returns the journal file path.
func (w *Writer) Path() string { return w.path }

// Append writes records and flushes them. It returns the sequence number of the last one.
func (w *Writer) Append(records ...Record) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i := range records {
		data, err := encodeRecord(&records[i])
		if err != nil {
			return w.seq, fmt.Errorf("failed to encode journal record: %w", err)
		}
		compressed := snappy.Encode(nil, data)

		w.seq++
		if err := w.writeFrame(w.seq, records[i].Op, compressed, records[i].Timestamp.Unix()); err != nil {
			w.seq--
			return w.seq, fmt.Errorf("failed to write journal record: %w", err)
		}
		w.written++
		w.bytesRaw += uint64(len(data))
		w.bytesCompressed += uint64(len(compressed))
	}

	if err := w.writer.Flush(); err != nil {
		return w.seq, fmt.Errorf("failed to flush journal: %w", err)
	}
	return w.seq, nil
}

func (w *Writer) writeFrame(seq uint64, op Op, data []byte, ts int64) error {
	var hdr [13]byte
	binary.BigEndian.PutUint64(hdr[0:8], seq)
	hdr[8] = byte(op)
	binary.BigEndian.PutUint32(hdr[9:13], uint32(len(data)))
	if _, err := w.writer.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := w.writer.Write(data); err != nil {
		return err
	}
	var tail [12]byte
	binary.BigEndian.PutUint32(tail[0:4], crc32.ChecksumIEEE(data))
	binary.BigEndian.PutUint64(tail[4:12], uint64(ts))
	_, err := w.writer.Write(tail[:])
	return err
}

// Stats returns the writer's counters.
func (w *Writer) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Stats{Records: w.written, BytesRaw: w.bytesRaw, BytesCompressed: w.bytesCompressed}
}

// Close flushes, syncs and closes the file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		return err
	}
	if err := w.file.Sync(); err != nil {
		return err
	}
	return w.file.Close()
}
