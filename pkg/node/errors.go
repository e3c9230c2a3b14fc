package node

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/shamank/zgstore-go/pkg/kv"
	"github.com/shamank/zgstore-go/pkg/storage"
)

// ErrUnsupported is returned by transports that lack an operation, such as
// KV on an IPFS node or uploads through a read-only gateway.
var ErrUnsupported = fmt.Errorf("node: %w", errors.ErrUnsupported)

// mapRPC converts a gRPC status from a node into the storage error taxonomy.
func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.NotFound:
		return fmt.Errorf("%w: %s", storage.ErrNotFound, st.Message())
	case codes.InvalidArgument, codes.PermissionDenied, codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", storage.ErrUploadRejected, st.Message())
	case codes.DataLoss:
		return fmt.Errorf("%w: %s", storage.ErrIntegrityVerificationFailed, st.Message())
	default:
		return err
	}
}

// mapErr converts a node-side error into a gRPC status.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, storage.ErrInvalidRoot), errors.Is(err, kv.ErrEmptyKey):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, storage.ErrIntegrityVerificationFailed):
		return status.Error(codes.DataLoss, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
