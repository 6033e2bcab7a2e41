// Package tree orchestrates put/fetch/flush/merge over a directory
// holding one WAL and zero or more immutable sorted segments. It is
// the top-level collaborator the teacher's LSMTree stub was reaching
// for (storage/lsmtree.go's NewLSMTree/Get/Put/Del/Compact), built out
// against this spec's memtable, WAL, bloom, and streams packages.
package tree

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/elbow-jason/lsmt-elixir/bloom"
	"github.com/elbow-jason/lsmt-elixir/codec"
	"github.com/elbow-jason/lsmt-elixir/errs"
	"github.com/elbow-jason/lsmt-elixir/memtable"
	"github.com/elbow-jason/lsmt-elixir/segment"
	"github.com/elbow-jason/lsmt-elixir/streams"
	"github.com/elbow-jason/lsmt-elixir/wal"
)

// Tree is a single-node, single-writer LSM-tree handle over a
// directory. Put, Flush, and Merge must be serialized by the caller;
// Tree itself only guards against racing its own accessors with a
// coarse read-write lock (spec section 5: an implementation "may
// provide a coarse read-write lock ... but is not required to").
type Tree struct {
	id  string
	dir string

	threshold int64

	mu       sync.RWMutex
	segments []int // descending: newest first
	mt       *memtable.Memtable
	bf       *bloom.Filter
	w        *wal.WAL

	metrics *metrics
}

// Open opens (or creates) a tree rooted at dir. If dir already holds
// segments and a WAL, the bloom filter and memtable are rebuilt from
// them before Open returns.
func Open(dir string, opts Options) (*Tree, error) {
	opts = opts.withDefaults()
	if err := opts.validateOptions(); err != nil {
		return nil, fmt.Errorf("tree: invalid options: %w", err)
	}

	id := uuid.New().String()

	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
		entries = nil
	}

	var segIDs []int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !segment.IsSegmentFile(e.Name()) {
			continue
		}
		n, err := segment.Num(e.Name())
		if err != nil {
			return nil, err
		}
		segIDs = append(segIDs, n)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(segIDs)))

	bf := bloom.New()
	for _, segID := range segIDs {
		pairs, err := streams.CollectAll(segment.Path(dir, segID))
		if err != nil {
			return nil, err
		}
		for _, p := range pairs {
			bf.Put(p.Key)
		}
	}

	mt := memtable.New()
	walPath := wal.Path(dir)
	if _, err := os.Stat(walPath); err == nil {
		pairs, err := streams.CollectAll(walPath)
		if err != nil {
			return nil, err
		}
		for _, p := range pairs {
			mt.Put(p.Key, p.Value)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	w, err := wal.Init(dir)
	if err != nil {
		return nil, err
	}

	m := newMetrics(opts.Registerer, id)
	m.segmentCount.Set(float64(len(segIDs)))

	return &Tree{
		id:        id,
		dir:       dir,
		threshold: opts.Threshold,
		segments:  segIDs,
		mt:        mt,
		bf:        bf,
		w:         w,
		metrics:   m,
	}, nil
}

// Directory returns the tree's root directory.
func (t *Tree) Directory() string { return t.dir }

// Segments returns the known segment ids, descending (newest first).
func (t *Tree) Segments() []int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]int, len(t.segments))
	copy(out, t.segments)
	return out
}

// Put durably appends (k, v) to the WAL, inserts it into the memtable,
// and flushes (rotating the WAL) if the memtable now exceeds the
// configured threshold.
func (t *Tree) Put(k, v codec.Value) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	kb := codec.Ser(k)
	vb := codec.Ser(v)

	framed := make([]byte, 0, len(kb)+len(vb))
	framed = append(framed, kb...)
	framed = append(framed, vb...)
	if err := t.w.Write(framed); err != nil {
		return err
	}

	t.mt.Put(kb, vb)
	t.metrics.puts.Inc()

	if int64(t.mt.ByteSize()) > t.threshold {
		if err := t.flushLocked(); err != nil {
			return err
		}
		if err := t.w.Rm(); err != nil {
			return err
		}
		w, err := wal.Init(t.dir)
		if err != nil {
			return err
		}
		t.w = w
	}

	return nil
}

// Fetch looks up k: first in the memtable, then (if the bloom filter
// reports a possible hit) by scanning segments newest-to-oldest.
func (t *Tree) Fetch(k codec.Value) (codec.Value, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	t.metrics.fetches.Inc()

	kb := codec.Ser(k)

	if vb, ok := t.mt.Fetch(kb); ok {
		return decodeFrame(vb)
	}

	if !t.bf.Member(kb) {
		return codec.Value{}, false, nil
	}

	for _, id := range t.segments {
		v, found, err := scanSegmentForKey(t.dir, id, kb)
		if err != nil {
			return codec.Value{}, false, err
		}
		if found {
			return v, true, nil
		}
	}

	return codec.Value{}, false, nil
}

func scanSegmentForKey(dir string, id int, kb []byte) (codec.Value, bool, error) {
	s, err := streams.StreamFile(segment.Path(dir, id))
	if err != nil {
		return codec.Value{}, false, err
	}
	defer s.Close()

	for {
		pair, ok, err := s.Next()
		if err != nil {
			return codec.Value{}, false, err
		}
		if !ok {
			return codec.Value{}, false, nil
		}
		if bytes.Equal(pair.Key, kb) {
			v, found, err := decodeFrame(pair.Value)
			return v, found, err
		}
	}
}

func decodeFrame(frame []byte) (codec.Value, bool, error) {
	status, v, rest, err := codec.DecodeOne(frame)
	if err != nil {
		return codec.Value{}, false, err
	}
	if status != codec.StatusOK || len(rest) != 0 {
		return codec.Value{}, false, fmt.Errorf("tree: stored value frame did not decode to exactly one value")
	}
	return v, true, nil
}

// Flush seals the current memtable as a new segment, inserts its keys
// into the bloom filter, and resets the memtable. It does not rotate
// the WAL; Put is responsible for that.
func (t *Tree) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flushLocked()
}

func (t *Tree) flushLocked() error {
	start := time.Now()
	defer func() { t.metrics.flushDuration.Observe(time.Since(start).Seconds()) }()

	id := 1
	if len(t.segments) > 0 {
		id = t.segments[0] + 1
	}

	pairs := t.mt.ToList()
	buf := make([]byte, 0, t.mt.ByteSize())
	for _, p := range pairs {
		buf = append(buf, p.Key...)
		buf = append(buf, p.Value...)
	}

	path := segment.Path(t.dir, id)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(buf); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	for _, p := range pairs {
		t.bf.Put(p.Key)
	}

	t.segments = append([]int{id}, t.segments...)
	t.mt = memtable.New()

	t.metrics.flushes.Inc()
	t.metrics.segmentCount.Set(float64(len(t.segments)))

	return nil
}

// Merge fuses segments a (older) and b (newer) into one segment that
// inherits id a, with the newer value winning on key collisions. b is
// removed from the segment list; a's id is reused so everything older
// than a stays older (I3).
func (t *Tree) Merge(a, b int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if a == b {
		return &errs.SelfMerge{ID: a}
	}
	if a > b {
		return &errs.OutOfOrderMerge{A: a, B: b}
	}

	pathA := segment.Path(t.dir, a)
	pathB := segment.Path(t.dir, b)
	tempPath := pathA + "temp"

	if err := mergeSegmentFiles(pathA, pathB, tempPath); err != nil {
		os.Remove(tempPath)
		return err
	}

	if err := os.Remove(pathB); err != nil {
		return err
	}
	if err := os.Remove(pathA); err != nil {
		return err
	}
	if err := os.Rename(tempPath, pathA); err != nil {
		return err
	}

	kept := t.segments[:0:0]
	for _, id := range t.segments {
		if id != b {
			kept = append(kept, id)
		}
	}
	t.segments = kept

	t.metrics.merges.Inc()
	t.metrics.segmentCount.Set(float64(len(t.segments)))

	return nil
}

func mergeSegmentFiles(pathA, pathB, tempPath string) error {
	merger, err := streams.NewFileMerger(pathA, pathB)
	if err != nil {
		return err
	}
	defer merger.Close()

	f, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	for {
		pair, ok, err := merger.Next()
		if err != nil {
			f.Close()
			return err
		}
		if !ok {
			break
		}
		if _, err := f.Write(pair.Key); err != nil {
			f.Close()
			return err
		}
		if _, err := f.Write(pair.Value); err != nil {
			f.Close()
			return err
		}
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Close releases the tree's open file handles. It does not flush any
// pending memtable contents -- callers that want durability beyond
// the WAL should Flush before Close.
func (t *Tree) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.w.Close()
}
