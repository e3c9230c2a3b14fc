package node

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"

	"google.golang.org/grpc"

	"github.com/shamank/zgstore-go/internal/testutil/grpcbuf"
	"github.com/shamank/zgstore-go/pkg/endpoint"
	"github.com/shamank/zgstore-go/pkg/kv"
	"github.com/shamank/zgstore-go/pkg/signer"
	"github.com/shamank/zgstore-go/pkg/storage"
)

const (
	testKey  = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	otherKey = "8da4ef21b864d2cc526dbdb2a120bd2874c36c9d0a1fb7f8c63d7f7a8b41de8f"
)

type cluster struct {
	urls    []string
	servers []*Server
	bufs    []*grpcbuf.Server
	opts    Options
}

// startCluster runs one in-memory node per name. URLs are passthrough
// targets routed to the matching bufconn listener.
func startCluster(t *testing.T, names ...string) *cluster {
	t.Helper()
	c := &cluster{}
	byAddr := make(map[string]*grpcbuf.Server)
	for _, name := range names {
		store, err := OpenStore("")
		if err != nil {
			t.Fatalf("OpenStore: %v", err)
		}
		t.Cleanup(func() { _ = store.Close() })
		srv := NewServer(store, ServerOptions{ChunkSize: 5})
		var regErr error
		buf := grpcbuf.Start(t, func(r grpc.ServiceRegistrar) { regErr = srv.Register(r) })
		if regErr != nil {
			t.Fatalf("Register: %v", regErr)
		}
		byAddr[name] = buf
		c.urls = append(c.urls, "passthrough:///"+name)
		c.servers = append(c.servers, srv)
		c.bufs = append(c.bufs, buf)
	}
	dialer := func(ctx context.Context, addr string) (net.Conn, error) {
		buf, ok := byAddr[addr]
		if !ok {
			return nil, fmt.Errorf("unknown node %q", addr)
		}
		return buf.Listener.DialContext(ctx)
	}
	c.opts = Options{ChunkSize: 7, DialOptions: []grpc.DialOption{grpc.WithContextDialer(dialer)}}
	return c
}

func credential(t *testing.T, key string) *signer.Credential {
	t.Helper()
	cred, err := signer.New(key)
	if err != nil {
		t.Fatalf("signer.New: %v", err)
	}
	return cred
}

func (c *cluster) storageClient(t *testing.T, cred *signer.Credential) *storage.Client {
	t.Helper()
	sel, err := endpoint.New(c.urls, StorageDialer(c.opts), endpoint.Options{})
	if err != nil {
		t.Fatalf("endpoint.New: %v", err)
	}
	client, err := storage.NewClient(sel, cred, nil, storage.Options{TempDir: t.TempDir()})
	if err != nil {
		t.Fatalf("storage.NewClient: %v", err)
	}
	return client
}

func (c *cluster) dial(t *testing.T, i int) *GRPCNode {
	t.Helper()
	conn, err := Dial(context.Background(), c.urls[i], c.opts)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	n, ok := conn.(*GRPCNode)
	if !ok {
		t.Fatalf("Dial returned %T", conn)
	}
	return n
}

func signedRequest(t *testing.T, cred *signer.Credential, data []byte) storage.UploadRequest {
	t.Helper()
	root, err := storage.RootOf(data)
	if err != nil {
		t.Fatalf("RootOf: %v", err)
	}
	digest := root.Digest()
	sig, err := cred.Sign(digest[:])
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return storage.UploadRequest{Root: root, Size: int64(len(data)), Signer: cred.Address(), Signature: sig}
}

func TestStorageRoundTripOverGRPC(t *testing.T) {
	c := startCluster(t, "node-a")
	cred := credential(t, testKey)
	client := c.storageClient(t, cred)
	ctx := context.Background()

	payload := bytes.Repeat([]byte("0g storage "), 50)
	src := filepath.Join(t.TempDir(), "in.bin")
	if err := os.WriteFile(src, payload, 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := client.Upload(ctx, src)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	root, _ := storage.RootOf(payload)
	if res.RootHash != root.String() {
		t.Fatalf("root = %s, want %s", res.RootHash, root)
	}
	sig, _ := cred.Sign(digestOf(root))
	if want := LocalReceipt(root.Digest(), sig).Hex(); res.TxHash != want {
		t.Fatalf("tx = %s, want %s", res.TxHash, want)
	}
	md := c.bufs[0].Meta.Last()
	if got := md.Get(HeaderSigner); len(got) != 1 || got[0] != cred.Address().Hex() {
		t.Fatalf("signer header = %v", got)
	}

	out := filepath.Join(t.TempDir(), "out.bin")
	if err := client.Download(ctx, res.RootHash, out); err != nil {
		t.Fatalf("Download: %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("downloaded bytes differ")
	}

	ok, err := c.dial(t, 0).Has(ctx, root)
	if err != nil || !ok {
		t.Fatalf("Has = %v, %v", ok, err)
	}
}

func digestOf(r storage.Root) []byte {
	d := r.Digest()
	return d[:]
}

func TestUpload_CarriesCommitmentTx(t *testing.T) {
	c := startCluster(t, "node-a")
	n := c.dial(t, 0)
	data := []byte("committed")
	req := signedRequest(t, credential(t, testKey), data)
	req.TxHash = "0xabc"

	rcpt, err := n.Upload(context.Background(), req, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if rcpt.TxHash != "0xabc" || rcpt.Root != req.Root.String() {
		t.Fatalf("receipt = %+v", rcpt)
	}
}

func TestUpload_Rejections(t *testing.T) {
	c := startCluster(t, "node-a")
	n := c.dial(t, 0)
	ctx := context.Background()
	data := []byte("payload")

	t.Run("signer mismatch", func(t *testing.T) {
		req := signedRequest(t, credential(t, otherKey), data)
		req.Signer = credential(t, testKey).Address()
		_, err := n.Upload(ctx, req, bytes.NewReader(data))
		if !errors.Is(err, storage.ErrUploadRejected) {
			t.Fatalf("expected ErrUploadRejected, got %v", err)
		}
	})
	t.Run("bytes do not match root", func(t *testing.T) {
		req := signedRequest(t, credential(t, testKey), data)
		_, err := n.Upload(ctx, req, bytes.NewReader([]byte("PAYLOAD")))
		if !errors.Is(err, storage.ErrIntegrityVerificationFailed) {
			t.Fatalf("expected ErrIntegrityVerificationFailed, got %v", err)
		}
	})
	t.Run("size mismatch", func(t *testing.T) {
		req := signedRequest(t, credential(t, testKey), data)
		req.Size = 3
		_, err := n.Upload(ctx, req, bytes.NewReader(data))
		if !errors.Is(err, storage.ErrUploadRejected) {
			t.Fatalf("expected ErrUploadRejected, got %v", err)
		}
	})

	ok, err := n.Has(ctx, signedRequest(t, credential(t, testKey), data).Root)
	if err != nil || ok {
		t.Fatalf("rejected content must not be stored: %v, %v", ok, err)
	}
}

func TestDownload_NotFound(t *testing.T) {
	c := startCluster(t, "node-a")
	root, _ := storage.RootOf([]byte("never uploaded"))
	var buf bytes.Buffer
	err := c.dial(t, 0).Download(context.Background(), root, &buf)
	if !storage.IsNotFound(err) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHealth_FailsOverToServingNode(t *testing.T) {
	c := startCluster(t, "node-a", "node-b")
	c.servers[0].Shutdown()

	if err := c.dial(t, 0).Health(context.Background()); err == nil {
		t.Fatal("expected NOT_SERVING node to be unhealthy")
	}
	sel, err := endpoint.New(c.urls, StorageDialer(c.opts), endpoint.Options{})
	if err != nil {
		t.Fatal(err)
	}
	n, url, err := sel.Select(context.Background())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	defer n.Close()
	if url != c.urls[1] {
		t.Fatalf("selected %s, want %s", url, c.urls[1])
	}

	c.servers[1].Shutdown()
	if _, _, err := sel.Select(context.Background()); !errors.Is(err, endpoint.ErrAllEndpointsUnavailable) {
		t.Fatalf("expected ErrAllEndpointsUnavailable, got %v", err)
	}
	c.servers[0].Resume()
	if _, url, err := sel.Select(context.Background()); err != nil || url != c.urls[0] {
		t.Fatalf("Select after resume = %s, %v", url, err)
	}
}

func TestKVOverGRPC(t *testing.T) {
	c := startCluster(t, "node-a")
	sel, err := endpoint.New(c.urls, KVDialer(c.opts), endpoint.Options{})
	if err != nil {
		t.Fatal(err)
	}
	client, err := kv.NewClient(sel, sel, credential(t, testKey), nil, kv.Options{StreamID: "transaction-storage"})
	if err != nil {
		t.Fatalf("kv.NewClient: %v", err)
	}
	ctx := context.Background()

	tx, err := client.StoreTransaction(ctx, "0xfeed", "0x1111111111111111111111111111111111111111")
	if err != nil {
		t.Fatalf("StoreTransaction: %v", err)
	}
	if len(tx) != 66 {
		t.Fatalf("tx = %q", tx)
	}
	wallet, found, err := client.WalletForTransaction(ctx, "0xfeed")
	if err != nil || !found || wallet != "0x1111111111111111111111111111111111111111" {
		t.Fatalf("WalletForTransaction = %q, %v, %v", wallet, found, err)
	}
	if _, found, err := client.WalletForTransaction(ctx, "0xunknown"); err != nil || found {
		t.Fatalf("unknown key = %v, %v", found, err)
	}

	if _, err := client.Put(ctx, "s", []byte("empty"), nil); err != nil {
		t.Fatalf("Put empty: %v", err)
	}
	v, found, err := client.Get(ctx, "s", []byte("empty"))
	if err != nil || !found || len(v) != 0 {
		t.Fatalf("Get empty = %q, %v, %v", v, found, err)
	}
}

func TestKV_ForgedBatchRejected(t *testing.T) {
	c := startCluster(t, "node-a")
	n := c.dial(t, 0)
	encoded, err := kv.EncodeBatch(&kv.Batch{
		Version:  kv.BatchVersion,
		StreamID: kv.StreamID("s").Bytes(),
		Writes:   []kv.Write{{Key: []byte("k"), Value: []byte("v")}},
	})
	if err != nil {
		t.Fatal(err)
	}
	root := kv.BatchRoot(encoded)
	sig, _ := credential(t, otherKey).Sign(root[:])
	_, err = n.PutKV(context.Background(), kv.PutRequest{
		Batch:     encoded,
		Signer:    credential(t, testKey).Address(),
		Signature: sig,
	})
	if !errors.Is(err, storage.ErrUploadRejected) {
		t.Fatalf("expected ErrUploadRejected, got %v", err)
	}
	if _, found, _ := n.GetKV(context.Background(), kv.StreamID("s"), []byte("k")); found {
		t.Fatal("forged batch must not be applied")
	}
}

func TestDial_Schemes(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		url  string
		want string
	}{
		{url: "kubo+http://127.0.0.1:5001", want: "*node.IPFSNode"},
		{url: "gateway+https://gateway.lighthouse.storage/ipfs/", want: "*node.GatewayNode"},
		{url: "https://indexer-storage-testnet-turbo.0g.ai", want: "*node.GRPCNode"},
		{url: "127.0.0.1:5678", want: "*node.GRPCNode"},
	}
	for _, tt := range tests {
		conn, err := Dial(ctx, tt.url, Options{})
		if err != nil {
			t.Fatalf("Dial(%s): %v", tt.url, err)
		}
		if got := fmt.Sprintf("%T", conn); got != tt.want {
			t.Fatalf("Dial(%s) = %s, want %s", tt.url, got, tt.want)
		}
		_ = conn.Close()
	}
	if _, err := Dial(ctx, "gateway+ftp://x", Options{}); err == nil {
		t.Fatal("expected error for non-http gateway")
	}
}

func kvPutRequest() kv.PutRequest {
	return kv.PutRequest{Batch: []byte{1}}
}
