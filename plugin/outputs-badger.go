package plugin

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	Mt "github.com/maroda/musicio/types"
)

const keyLen = 8 + 1 + 4 + 5

// BadgerRecorder keeps a durable log of domain events
type BadgerRecorder struct {
	MU        sync.Mutex
	DB        *badger.DB
	BatchSize int
	Buffer    []Mt.DomainEvent
	seq       atomic.Uint32
}

// NewBadgerRecorder opens path, an empty path runs in memory
func NewBadgerRecorder(path string, batchSize int) (*BadgerRecorder, error) {
	if batchSize < 1 {
		batchSize = 1
	}

	opts := badger.DefaultOptions(path).
		WithCompression(options.ZSTD).
		WithNumVersionsToKeep(1).
		WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		slog.Error("BadgerRecorder failed to open database", slog.Any("error", err))
		return nil, fmt.Errorf("database error: %w", err)
	}

	slog.Info("BadgerRecorder opened",
		slog.String("path", path),
		slog.Int("batchSize", batchSize))

	return &BadgerRecorder{
		DB:        db,
		BatchSize: batchSize,
		Buffer:    make([]Mt.DomainEvent, 0, batchSize),
	}, nil
}

// Record queues an event, a full buffer is written as one batch
func (br *BadgerRecorder) Record(e Mt.DomainEvent) error {
	br.MU.Lock()
	defer br.MU.Unlock()

	br.Buffer = append(br.Buffer, e)
	if len(br.Buffer) >= br.BatchSize {
		return br.flushLocked()
	}
	return nil
}

// WriteBatch writes events straight to the database
func (br *BadgerRecorder) WriteBatch(events []Mt.DomainEvent) error {
	wb := br.DB.NewWriteBatch()
	defer wb.Cancel()

	for _, e := range events {
		v, err := EventEncode(e)
		if err != nil {
			return fmt.Errorf("encode error: %w", err)
		}
		if err := wb.Set(EventKey(e, br.seq.Add(1)), v); err != nil {
			slog.Error("BadgerRecorder failed to set key in batch",
				slog.Any("error", err),
				slog.Time("eventTime", e.Timestamp),
				slog.String("kind", EventLabel(e)))
			return fmt.Errorf("write batch error: %w", err)
		}
	}

	if err := wb.Flush(); err != nil {
		slog.Error("BadgerRecorder failed to flush batch", slog.Any("error", err))
		return fmt.Errorf("batch flush error: %w", err)
	}

	return nil
}

func (br *BadgerRecorder) Flush() error {
	br.MU.Lock()
	defer br.MU.Unlock()
	return br.flushLocked()
}

func (br *BadgerRecorder) flushLocked() error {
	if len(br.Buffer) == 0 {
		return nil
	}
	err := br.WriteBatch(br.Buffer)
	br.Buffer = br.Buffer[:0]
	return err
}

// Close returns a Flush error but still attempts to close
func (br *BadgerRecorder) Close() error {
	br.MU.Lock()
	slog.Info("BadgerRecorder closing, flushing buffer",
		slog.Int("bufferSize", len(br.Buffer)))
	flushErr := br.flushLocked()
	br.MU.Unlock()
	closeErr := br.DB.Close()

	if flushErr != nil {
		slog.Error("BadgerRecorder failed to flush on close", slog.Any("error", flushErr))
		return fmt.Errorf("flush failed, close may have failed: %w", flushErr)
	}
	if closeErr != nil {
		slog.Error("BadgerRecorder failed to close database", slog.Any("error", closeErr))
		return fmt.Errorf("close failed: %w", closeErr)
	}

	slog.Info("BadgerRecorder closed successfully")
	return nil
}

func (br *BadgerRecorder) Type() string { return "badger" }

// EventKey is timestamp + kind + sequence + first five bytes of a label.
// The sequence keeps events with the same timestamp apart.
func EventKey(e Mt.DomainEvent, seq uint32) []byte {
	key := make([]byte, keyLen)

	// positive BigEndian so keys sort chronologically
	binary.BigEndian.PutUint64(key[0:8], uint64(e.Timestamp.UnixNano()))
	key[8] = byte(e.Kind)
	binary.BigEndian.PutUint32(key[9:13], seq)

	label := []byte(EventLabel(e))
	n := len(label)
	if n > 5 {
		n = 5
	}
	copy(key[13:13+n], label[:n])

	return key
}

// EventLabel names the event by its most useful field
func EventLabel(e Mt.DomainEvent) string {
	switch {
	case e.Proximity != nil:
		return e.Proximity.SourceID
	case e.Transition != nil:
		return e.Transition.Reason
	case e.Sound != nil:
		return "sound"
	}
	return ""
}

func EventEncode(e Mt.DomainEvent) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func EventDecode(data []byte) (Mt.DomainEvent, error) {
	var e Mt.DomainEvent
	err := gob.NewDecoder(bytes.NewBuffer(data)).Decode(&e)
	return e, err
}

// QueryRange returns stored events with start <= timestamp <= end, oldest first
func (br *BadgerRecorder) QueryRange(start, end time.Time) ([]Mt.DomainEvent, error) {
	var events []Mt.DomainEvent

	seek := make([]byte, 8)
	binary.BigEndian.PutUint64(seek, uint64(start.UnixNano()))
	stop := uint64(end.UnixNano())

	err := br.DB.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(seek); it.Valid(); it.Next() {
			item := it.Item()
			if binary.BigEndian.Uint64(item.Key()[0:8]) > stop {
				break
			}

			err := item.Value(func(val []byte) error {
				e, err := EventDecode(val)
				if err != nil {
					slog.Error("BadgerRecorder failed to decode event", slog.Any("error", err))
					return fmt.Errorf("event decode error: %w", err)
				}
				events = append(events, e)
				return nil
			})
			if err != nil {
				return fmt.Errorf("item data error: %w", err)
			}
		}
		return nil
	})

	slog.Debug("BadgerRecorder QueryRange", slog.Int("count", len(events)))

	return events, err
}
