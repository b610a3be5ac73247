// Package journal keeps an append-only log of every change a merge run makes. Records are
// msgpack encoded, snappy compressed and framed with a CRC32 checksum.
package journal

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/dd0wney/jmri-panelmerge/pkg/reconcile"
)

// Op is the kind of change a record describes.
type Op uint8

const (
	OpInsert Op = iota + 1
	OpUpdate
	OpPurge
	OpDuplicate
	OpAllocate
	OpUndesired
	// OpRun marks the start of a run. Detail holds the input path.
	OpRun
)

var opNames = map[Op]string{
	OpInsert:    "insert",
	OpUpdate:    "update",
	OpPurge:     "purge",
	OpDuplicate: "duplicate",
	OpAllocate:  "allocate",
	OpUndesired: "undesired",
	OpRun:       "run",
}

func (o Op) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return fmt.Sprintf("op(%d)", uint8(o))
}

// Record is one journal entry.
type Record struct {
	RunID      string    `msgpack:"run"`
	Op         Op        `msgpack:"op"`
	Kind       string    `msgpack:"kind,omitempty"`
	Key        string    `msgpack:"key,omitempty"`
	SystemName string    `msgpack:"sys,omitempty"`
	Detail     string    `msgpack:"detail,omitempty"`
	Timestamp  time.Time `msgpack:"ts"`
}

func encodeRecord(r *Record) ([]byte, error) {
	return msgpack.Marshal(r)
}

func decodeRecord(data []byte) (*Record, error) {
	r := &Record{}
	if err := msgpack.Unmarshal(data, r); err != nil {
		return nil, err
	}
	return r, nil
}

// FromResult turns a merge result into records. Unchanged keys are not recorded.
func FromResult(runID string, res *reconcile.Result, now time.Time) []Record {
	if res == nil {
		return nil
	}
	kind := res.Kind.String()
	var out []Record
	add := func(op Op, keys []string, asSystemName bool) {
		for _, k := range keys {
			r := Record{RunID: runID, Op: op, Kind: kind, Timestamp: now}
			if asSystemName {
				r.SystemName = k
			} else {
				r.Key = k
			}
			out = append(out, r)
		}
	}
	add(OpDuplicate, res.Duplicates, false)
	add(OpInsert, res.Inserted, false)
	add(OpUpdate, res.Updated, false)
	add(OpAllocate, res.Allocated, true)

	purged := make(map[string]bool, len(res.Purged))
	for _, k := range res.Purged {
		purged[k] = true
	}
	for _, k := range res.Undesired {
		op := OpUndesired
		if purged[k] {
			op = OpPurge
		}
		out = append(out, Record{RunID: runID, Op: op, Kind: kind, Key: k, Timestamp: now})
	}
	return out
}
