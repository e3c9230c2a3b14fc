// Package grpcbuf runs gRPC services over an in-memory bufconn listener for tests.
package grpcbuf

import (
	"context"
	"net"
	"sync/atomic"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"
)

const bufSize = 1024 * 1024

// MetaCapture captures incoming metadata on the server side for later inspection in tests.
type MetaCapture struct {
	last atomic.Value // stores metadata.MD
}

func (m *MetaCapture) record(ctx context.Context) {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		m.last.Store(md)
	}
}

// Unary records incoming metadata and forwards the request to the next handler.
func (m *MetaCapture) Unary(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	m.record(ctx)
	return handler(ctx, req)
}

// Stream records incoming metadata of streaming calls.
func (m *MetaCapture) Stream(srv any, ss grpc.ServerStream, _ *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	m.record(ss.Context())
	return handler(srv, ss)
}

// Last returns the most recently captured metadata or nil if none.
func (m *MetaCapture) Last() metadata.MD {
	if v := m.last.Load(); v != nil {
		return v.(metadata.MD)
	}
	return nil
}

// Server is a running in-memory gRPC server.
type Server struct {
	*grpc.Server
	Listener *bufconn.Listener
	Meta     *MetaCapture
}

// Start spins up a bufconn-backed gRPC server with metadata capture enabled.
// register adds services before serving starts. The server is stopped when
// the test ends.
func Start(t testing.TB, register func(grpc.ServiceRegistrar)) *Server {
	t.Helper()
	lis := bufconn.Listen(bufSize)
	meta := &MetaCapture{}
	srv := grpc.NewServer(
		grpc.UnaryInterceptor(meta.Unary),
		grpc.StreamInterceptor(meta.Stream),
	)
	register(srv)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(func() {
		srv.Stop()
		_ = lis.Close()
	})
	return &Server{Server: srv, Listener: lis, Meta: meta}
}

// Dialer returns a context dialer that connects to the in-memory listener.
func (s *Server) Dialer() func(context.Context, string) (net.Conn, error) {
	return func(ctx context.Context, _ string) (net.Conn, error) { return s.Listener.DialContext(ctx) }
}

// Dial connects to the server using the standard gRPC client stack.
func (s *Server) Dial(opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	// bufconn has no TLS; the passthrough target makes NewClient honor the custom dialer.
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(s.Dialer()),
	}
	return grpc.NewClient("passthrough:///bufnet", append(base, opts...)...)
}
