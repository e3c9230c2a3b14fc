package node

import (
	"bytes"
	"testing"

	"github.com/shamank/zgstore-go/pkg/kv"
	"github.com/shamank/zgstore-go/pkg/storage"
)

func TestStore_Blobs(t *testing.T) {
	s, err := OpenStore("")
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer s.Close()

	root, _ := storage.RootOf([]byte("blob"))
	if ok, err := s.HasBlob(root); err != nil || ok {
		t.Fatalf("HasBlob before put = %v, %v", ok, err)
	}
	if _, err := s.Blob(root); !storage.IsNotFound(err) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.PutBlob(root, []byte("blob")); err != nil {
		t.Fatalf("PutBlob: %v", err)
	}
	// Blobs are immutable once written.
	if err := s.PutBlob(root, []byte("other")); err != nil {
		t.Fatalf("PutBlob again: %v", err)
	}
	got, err := s.Blob(root)
	if err != nil || string(got) != "blob" {
		t.Fatalf("Blob = %q, %v", got, err)
	}
}

func TestStore_KV(t *testing.T) {
	s, err := OpenStore("")
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer s.Close()

	b := &kv.Batch{
		Version:  kv.BatchVersion,
		StreamID: kv.StreamID("a").Bytes(),
		Writes: []kv.Write{
			{Key: []byte("k1"), Value: []byte("v1")},
			{Key: []byte("k2")},
		},
	}
	if err := s.ApplyBatch(b); err != nil {
		t.Fatalf("ApplyBatch: %v", err)
	}
	if v, found, err := s.Value(kv.StreamID("a"), []byte("k1")); err != nil || !found || string(v) != "v1" {
		t.Fatalf("Value k1 = %q, %v, %v", v, found, err)
	}
	v, found, err := s.Value(kv.StreamID("a"), []byte("k2"))
	if err != nil || !found || v == nil || len(v) != 0 {
		t.Fatalf("Value k2 = %q, %v, %v", v, found, err)
	}
	if _, found, err := s.Value(kv.StreamID("b"), []byte("k1")); err != nil || found {
		t.Fatalf("other stream = %v, %v", found, err)
	}

	bad := &kv.Batch{Version: kv.BatchVersion, StreamID: kv.StreamID("a").Bytes(), Writes: []kv.Write{{Key: []byte("k3"), Value: []byte("x")}, {}}}
	if err := s.ApplyBatch(bad); err == nil {
		t.Fatal("expected error for empty key")
	}
	if _, found, _ := s.Value(kv.StreamID("a"), []byte("k3")); found {
		t.Fatal("a failed batch must not be partially applied")
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	root, _ := storage.RootOf([]byte("durable"))

	s, err := OpenStore(dir)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	if err := s.PutBlob(root, []byte("durable")); err != nil {
		t.Fatalf("PutBlob: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = OpenStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.Blob(root)
	if err != nil || !bytes.Equal(got, []byte("durable")) {
		t.Fatalf("Blob after reopen = %q, %v", got, err)
	}
}
