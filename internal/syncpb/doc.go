// Package syncpb defines the gigbook sync service wire contract.
//
// Messages are plain Go structs carried as google.protobuf.Struct values, so
// the stock gRPC proto codec moves them without generated code. Encode and
// Decode convert between the two through their JSON forms.
package syncpb
