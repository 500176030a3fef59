package proto

import (
	"google.golang.org/protobuf/types/known/structpb"
)

// Envelope keys.
const (
	KeyFirstName = "firstName"
	KeyLastName  = "lastName"
	KeyEmail     = "email"
	KeyPassword  = "password"
	KeyID        = "id"
	KeyToken     = "token"
	KeyUser      = "user"
	KeyMessage   = "message"
)

// String returns the string field key of s, or "" when absent or of
// another kind.
func String(s *structpb.Struct, key string) string {
	if s == nil {
		return ""
	}
	v, ok := s.GetFields()[key]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

// Struct returns the nested struct field key of s, or nil.
func Struct(s *structpb.Struct, key string) *structpb.Struct {
	if s == nil {
		return nil
	}
	v, ok := s.GetFields()[key]
	if !ok {
		return nil
	}
	return v.GetStructValue()
}

// Strings builds a flat struct of string fields.
func Strings(kv map[string]string) *structpb.Struct {
	fields := make(map[string]*structpb.Value, len(kv))
	for k, v := range kv {
		fields[k] = structpb.NewStringValue(v)
	}
	return &structpb.Struct{Fields: fields}
}
