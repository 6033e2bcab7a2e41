package streams

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/elbow-jason/lsmt-elixir/codec"
)

func writeFrames(t *testing.T, path string, frames ...[]byte) {
	t.Helper()
	var all []byte
	for _, f := range frames {
		all = append(all, f...)
	}
	if err := os.WriteFile(path, all, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestStreamFileYieldsPairsInOrder(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "segment-1.data")
	writeFrames(t, p,
		codec.Ser(codec.Bytes([]byte("hello"))),
		codec.Ser(codec.Bytes([]byte("world"))),
		codec.Ser(codec.Bytes([]byte("hello_there"))),
		codec.Ser(codec.Bytes([]byte("worlds_apart"))),
	)

	s, err := StreamFileChunked(p, 7) // force multiple reads per frame
	if err != nil {
		t.Fatalf("StreamFileChunked: %v", err)
	}
	defer s.Close()

	var got []Pair
	for {
		pair, ok, err := s.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, pair)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(got))
	}
	if string(decodeBytesValue(t, got[0].Key)) != "hello" || string(decodeBytesValue(t, got[0].Value)) != "world" {
		t.Fatalf("unexpected first pair: %+v", got[0])
	}
	if string(decodeBytesValue(t, got[1].Key)) != "hello_there" || string(decodeBytesValue(t, got[1].Value)) != "worlds_apart" {
		t.Fatalf("unexpected second pair: %+v", got[1])
	}
}

func decodeBytesValue(t *testing.T, frame []byte) []byte {
	t.Helper()
	_, v, rest, err := codec.DecodeOne(frame)
	if err != nil {
		t.Fatalf("DecodeOne: %v", err)
	}
	if len(rest) != 0 {
		t.Fatalf("expected the frame to be fully consumed")
	}
	b, ok := v.BytesValue()
	if !ok {
		t.Fatalf("expected a bytes value")
	}
	return b
}

func TestStreamFileIncompleteOddTermCount(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "segment-1.data")
	writeFrames(t, p, codec.Ser(codec.Bytes([]byte("onlykey"))))

	s, err := StreamFile(p)
	if err != nil {
		t.Fatalf("StreamFile: %v", err)
	}

	_, _, err = s.Next()
	if err == nil {
		t.Fatalf("expected a file_is_incomplete error")
	}
}

func TestStreamFileIncompleteTruncatedFrame(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "segment-1.data")
	full := codec.Ser(codec.Bytes([]byte("hello")))
	if err := os.WriteFile(p, full[:len(full)-2], 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s, err := StreamFile(p)
	if err != nil {
		t.Fatalf("StreamFile: %v", err)
	}
	_, _, err = s.Next()
	if err == nil {
		t.Fatalf("expected a file_is_incomplete error for a truncated frame")
	}
}

func TestFileMergerOverlappingSortedKeys(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "segment-1.data")
	p2 := filepath.Join(dir, "segment-2.data")

	write := func(path string, keys ...string) {
		var frames []byte
		for _, k := range keys {
			frames = append(frames, codec.Ser(codec.Bytes([]byte(k)))...)
			frames = append(frames, codec.Ser(codec.Bytes([]byte("v-"+k)))...)
		}
		if err := os.WriteFile(path, frames, 0644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	write(p1, "hello1", "hello2", "hello7", "hello8")
	write(p2, "hello3", "hello4", "hello5", "hello6")

	m, err := NewFileMerger(p1, p2)
	if err != nil {
		t.Fatalf("NewFileMerger: %v", err)
	}
	defer m.Close()

	var keys []string
	for {
		pair, ok, err := m.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		keys = append(keys, string(decodeBytesValue(t, pair.Key)))
	}

	want := []string{"hello1", "hello2", "hello3", "hello4", "hello5", "hello6", "hello7", "hello8"}
	if len(keys) != len(want) {
		t.Fatalf("expected %d keys, got %d: %v", len(want), len(keys), keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("position %d: expected %q, got %q", i, want[i], keys[i])
		}
	}
}

func TestFileMergerTieBreakPrefersPath2(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "segment-1.data")
	p2 := filepath.Join(dir, "segment-2.data")

	frame1 := append(codec.Ser(codec.Bytes([]byte("hello"))), codec.Ser(codec.Bytes([]byte("first")))...)
	frame2 := append(codec.Ser(codec.Bytes([]byte("hello"))), codec.Ser(codec.Bytes([]byte("second")))...)

	if err := os.WriteFile(p1, frame1, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(p2, frame2, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	m, err := NewFileMerger(p1, p2)
	if err != nil {
		t.Fatalf("NewFileMerger: %v", err)
	}
	defer m.Close()

	pair, ok, err := m.Next()
	if err != nil || !ok {
		t.Fatalf("Next: ok=%v err=%v", ok, err)
	}
	if string(decodeBytesValue(t, pair.Value)) != "second" {
		t.Fatalf("expected the newer (path2) value to win, got %q", decodeBytesValue(t, pair.Value))
	}

	_, ok, err = m.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if ok {
		t.Fatalf("expected exactly one merged pair for a duplicate key")
	}
}
