package cache

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/nikandfor/hacked/hfmt"
	"github.com/tidwall/tinylru"
	"github.com/zeebo/xxh3"
	"go.etcd.io/bbolt"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/dynir/compiler/ir"
)

type (
	// Key identifies a compiled artifact.
	Key uint64

	Options struct {
		// Path to the database file. Empty keeps artifacts in memory only.
		Path string

		// Size of the in-memory LRU. Zero keeps the LRU default.
		MemEntries int

		Compress bool
		Level    zstd.EncoderLevel
	}

	// Store keeps encoded units in a bbolt bucket,
	// with a small LRU of decompressed streams in front of it.
	// It is safe for concurrent use.
	Store struct {
		db  *bbolt.DB
		mem tinylru.LRU

		enc *zstd.Encoder
		dec *zstd.Decoder
	}
)

// Value codecs. The first byte of a stored value.
const (
	codecRaw  = 0
	codecZstd = 1
)

var bucket = []byte("units")

var ErrClosed = errors.New("cache closed")

// KeyOf hashes the unit source together with everything
// that changes the compiled result.
func KeyOf(src []byte, params ...string) Key {
	h := xxh3.New()

	var v [8]byte
	binary.BigEndian.PutUint64(v[:], uint64(ir.FormatVersion))
	_, _ = h.Write(v[:])

	for _, p := range params {
		_, _ = h.WriteString(p)
		_, _ = h.Write([]byte{0})
	}

	_, _ = h.Write(src)

	return Key(h.Sum64())
}

func (k Key) bytes() []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(k))
}

func Open(ctx context.Context, opts Options) (s *Store, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "cache: open", "path", opts.Path, "mem", opts.MemEntries, "compress", opts.Compress)
	defer tr.Finish("err", &err)

	s = &Store{}

	if opts.MemEntries > 0 {
		s.mem.Resize(opts.MemEntries)
	}

	if opts.Compress {
		l := opts.Level
		if l == 0 {
			l = zstd.SpeedDefault
		}

		s.enc, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(l))
		if err != nil {
			return nil, errors.Wrap(err, "zstd encoder")
		}
	}

	s.dec, err = zstd.NewReader(nil)
	if err != nil {
		return nil, errors.Wrap(err, "zstd decoder")
	}

	if opts.Path == "" {
		return s, nil
	}

	err = os.MkdirAll(filepath.Dir(opts.Path), 0o755)
	if err != nil {
		return nil, errors.Wrap(err, "mkdir")
	}

	s.db, err = bbolt.Open(opts.Path, 0o644, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "open db")
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		_ = s.db.Close()
		return nil, errors.Wrap(err, "create bucket")
	}

	tlog.SpanFromContext(ctx).V("cache").Printw("cache opened", "path", opts.Path)

	return s, nil
}

func (s *Store) Close() (err error) {
	if s.enc != nil {
		_ = s.enc.Close()
	}

	s.dec.Close()

	if s.db != nil {
		err = s.db.Close()
	}

	return err
}

// Put encodes u and stores it under k.
func (s *Store) Put(ctx context.Context, k Key, u *ir.Unit) error {
	raw := ir.EncodeUnit(nil, u)

	s.mem.Set(k, raw)

	if s.db == nil {
		return nil
	}

	val := s.pack(raw)

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Put(k.bytes(), val)
	})
	if err != nil {
		return errors.Wrap(err, "put")
	}

	tlog.SpanFromContext(ctx).V("cache").Printw("cache put", "key", k, "unit", u.Name, "raw", len(raw), "stored", len(val))

	return nil
}

// Get returns the unit stored under k.
// A corrupt entry is evicted and reported with an error matching ir.ErrCorrupt,
// the caller is expected to recompile.
func (s *Store) Get(ctx context.Context, k Key) (u *ir.Unit, ok bool, err error) {
	tr := tlog.SpanFromContext(ctx)

	if v, ok := s.mem.Get(k); ok {
		u, err = ir.DecodeUnit(v.([]byte))
		if err == nil {
			tr.V("cache").Printw("cache hit", "key", k, "level", "mem")
			return u, true, nil
		}

		return nil, false, s.evict(ctx, k, err)
	}

	if s.db == nil {
		return nil, false, nil
	}

	var val []byte

	err = s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucket).Get(k.bytes())
		if v != nil {
			val = append([]byte{}, v...)
		}

		return nil
	})
	if err != nil {
		return nil, false, errors.Wrap(err, "get")
	}

	if val == nil {
		tr.V("cache").Printw("cache miss", "key", k)
		return nil, false, nil
	}

	raw, err := s.unpack(val)
	if err != nil {
		return nil, false, s.evict(ctx, k, err)
	}

	u, err = ir.DecodeUnit(raw)
	if err != nil {
		return nil, false, s.evict(ctx, k, err)
	}

	s.mem.Set(k, raw)

	tr.V("cache").Printw("cache hit", "key", k, "level", "db")

	return u, true, nil
}

func (s *Store) evict(ctx context.Context, k Key, cause error) error {
	tlog.SpanFromContext(ctx).Printw("evict corrupt artifact", "key", k, "err", cause)

	err := s.Delete(ctx, k)
	if err != nil {
		return errors.Wrap(err, "evict after: %v", cause)
	}

	return errors.Wrap(cause, "artifact %v", k)
}

func (s *Store) Delete(ctx context.Context, k Key) error {
	s.mem.Delete(k)

	if s.db == nil {
		return nil
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Delete(k.bytes())
	})
	if err != nil {
		return errors.Wrap(err, "delete")
	}

	return nil
}

// Clear drops every artifact.
func (s *Store) Clear(ctx context.Context) (err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "cache: clear")
	defer tr.Finish("err", &err)

	var keys []any

	s.mem.Range(func(k, _ any) bool {
		keys = append(keys, k)
		return true
	})

	for _, k := range keys {
		s.mem.Delete(k)
	}

	if s.db == nil {
		return nil
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		err := tx.DeleteBucket(bucket)
		if err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return err
		}

		_, err = tx.CreateBucket(bucket)

		return err
	})
	if err != nil {
		return errors.Wrap(err, "reset bucket")
	}

	return nil
}

// Len returns the number of persisted artifacts,
// or the in-memory count without a database.
func (s *Store) Len() (n int, err error) {
	if s.db == nil {
		return s.mem.Len(), nil
	}

	err = s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucket).Stats().KeyN
		return nil
	})

	return n, err
}

func (s *Store) pack(raw []byte) []byte {
	if s.enc == nil {
		return append([]byte{codecRaw}, raw...)
	}

	return s.enc.EncodeAll(raw, []byte{codecZstd})
}

func (s *Store) unpack(val []byte) ([]byte, error) {
	if len(val) == 0 {
		return nil, &ir.DecodeError{Reason: "empty artifact"}
	}

	switch val[0] {
	case codecRaw:
		return val[1:], nil
	case codecZstd:
		raw, err := s.dec.DecodeAll(val[1:], nil)
		if err != nil {
			return nil, &ir.DecodeError{Off: 1, Reason: "zstd: " + err.Error()}
		}

		return raw, nil
	default:
		return nil, &ir.DecodeError{Reason: "unknown codec"}
	}
}

func (k Key) String() string {
	return string(hfmt.Appendf(nil, "%016x", uint64(k)))
}
