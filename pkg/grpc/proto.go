package grpc

import (
	"context"
	_ "embed"
	"fmt"
	"maps"
	"slices"

	"github.com/bufbuild/protocompile"
	"github.com/bufbuild/protocompile/linker"
	"go.uber.org/zap"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// KVProtoFile is the file name under which the embedded KV schema is compiled.
const KVProtoFile = "zgstore/kv/v1/kv.proto"

// KVProtoEmbedded contains the text of kv.proto, the schema spoken by KV
// endpoints.
//
//go:embed kv.proto
var KVProtoEmbedded string

// KVProtoFiles returns the proto sources needed to talk to a KV endpoint.
func KVProtoFiles() map[string]string {
	return map[string]string{KVProtoFile: KVProtoEmbedded}
}

// FindMethod searches the given compiled proto files for a method with the
// provided simple method name (as declared in the .proto). It iterates over all
// services in all files and returns the file descriptor and method descriptor
// for the first match.
func FindMethod(files linker.Files, methodName string) (protoreflect.FileDescriptor, protoreflect.MethodDescriptor, error) {
	for _, file := range files {
		for i := 0; i < file.Services().Len(); i++ {
			service := file.Services().Get(i)
			method := service.Methods().ByName(protoreflect.Name(methodName))
			if method != nil {
				return file, method, nil
			}
		}
	}
	return nil, nil, fmt.Errorf("method %s not found in provided proto files", methodName)
}

// FindService returns the service with the given fully-qualified name
// (e.g. "zgstore.kv.v1.KV").
func FindService(files linker.Files, fullName string) (protoreflect.ServiceDescriptor, error) {
	for _, file := range files {
		for i := 0; i < file.Services().Len(); i++ {
			if sd := file.Services().Get(i); sd.FullName() == protoreflect.FullName(fullName) {
				return sd, nil
			}
		}
	}
	return nil, fmt.Errorf("service %s not found in provided proto files", fullName)
}

// fullMethodName builds "/<package>.<Service>/<Method>".
func fullMethodName(md protoreflect.MethodDescriptor) string {
	return "/" + string(md.Parent().FullName()) + "/" + string(md.Name())
}

// CompileProtos compiles the provided proto sources (filename → content)
// into linker.Files using protocompile with standard imports enabled. The
// input map is not modified.
func CompileProtos(protoFiles map[string]string) (linker.Files, error) {
	if len(protoFiles) == 0 {
		return nil, fmt.Errorf("no proto files provided")
	}
	accessor := protocompile.SourceAccessorFromMap(protoFiles)
	r := protocompile.WithStandardImports(&protocompile.SourceResolver{Accessor: accessor})
	compiler := protocompile.Compiler{
		Resolver:       r,
		SourceInfoMode: protocompile.SourceInfoStandard,
	}
	names := slices.Sorted(maps.Keys(protoFiles))
	fds, err := compiler.Compile(context.Background(), names...)
	if err != nil || fds == nil {
		zap.L().Error("failed to compile proto files", zap.Error(err))
		return nil, fmt.Errorf("failed to compile proto files: %v", err)
	}
	return fds, nil
}
