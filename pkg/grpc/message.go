package grpc

import (
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Field returns the value of the named field, or an invalid Value when the
// message has no such field.
func Field(m *dynamicpb.Message, name string) protoreflect.Value {
	fd := m.Descriptor().Fields().ByName(protoreflect.Name(name))
	if fd == nil {
		return protoreflect.Value{}
	}
	return m.Get(fd)
}

// BytesField returns the named bytes field or nil.
func BytesField(m *dynamicpb.Message, name string) []byte {
	v := Field(m, name)
	if !v.IsValid() {
		return nil
	}
	return v.Bytes()
}

// StringField returns the named string field or "".
func StringField(m *dynamicpb.Message, name string) string {
	v := Field(m, name)
	if !v.IsValid() {
		return ""
	}
	return v.String()
}

// BoolField returns the named bool field or false.
func BoolField(m *dynamicpb.Message, name string) bool {
	v := Field(m, name)
	if !v.IsValid() {
		return false
	}
	return v.Bool()
}

// SetField sets a scalar field by name. Unknown names are ignored.
func SetField(m *dynamicpb.Message, name string, v any) {
	fd := m.Descriptor().Fields().ByName(protoreflect.Name(name))
	if fd == nil {
		return
	}
	m.Set(fd, protoreflect.ValueOf(v))
}
