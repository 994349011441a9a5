package syncpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "gigbook.sync.v1.SyncService"

// Full method names, as seen by interceptors.
const (
	MethodRegister     = "/" + ServiceName + "/Register"
	MethodLogin        = "/" + ServiceName + "/Login"
	MethodRefreshToken = "/" + ServiceName + "/RefreshToken"
	MethodPing         = "/" + ServiceName + "/Ping"
	MethodAccount      = "/" + ServiceName + "/Account"
	MethodSetTier      = "/" + ServiceName + "/SetTier"
	MethodUpsert       = "/" + ServiceName + "/Upsert"
	MethodDelete       = "/" + ServiceName + "/Delete"
	MethodPushAll      = "/" + ServiceName + "/PushAll"
	MethodPullAll      = "/" + ServiceName + "/PullAll"
	MethodCount        = "/" + ServiceName + "/Count"
	MethodPresignMedia = "/" + ServiceName + "/PresignMedia"
)

// SyncServiceServer is implemented by the cloud side.
type SyncServiceServer interface {
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	RefreshToken(context.Context, *RefreshTokenRequest) (*RefreshTokenResponse, error)
	Ping(context.Context, *PingRequest) (*PingResponse, error)
	Account(context.Context, *AccountRequest) (*AccountResponse, error)
	SetTier(context.Context, *SetTierRequest) (*SetTierResponse, error)
	Upsert(context.Context, *UpsertRequest) (*UpsertResponse, error)
	Delete(context.Context, *DeleteRequest) (*DeleteResponse, error)
	PushAll(context.Context, *PushAllRequest) (*PushAllResponse, error)
	PullAll(context.Context, *PullAllRequest) (*PullAllResponse, error)
	Count(context.Context, *CountRequest) (*CountResponse, error)
	PresignMedia(context.Context, *PresignMediaRequest) (*PresignMediaResponse, error)
}

// UnimplementedSyncServiceServer answers every call with codes.Unimplemented.
// Embed it to stay forward compatible.
type UnimplementedSyncServiceServer struct{}

func unimplemented(name string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", name)
}

func (UnimplementedSyncServiceServer) Register(context.Context, *RegisterRequest) (*RegisterResponse, error) {
	return nil, unimplemented("Register")
}
func (UnimplementedSyncServiceServer) Login(context.Context, *LoginRequest) (*LoginResponse, error) {
	return nil, unimplemented("Login")
}
func (UnimplementedSyncServiceServer) RefreshToken(context.Context, *RefreshTokenRequest) (*RefreshTokenResponse, error) {
	return nil, unimplemented("RefreshToken")
}
func (UnimplementedSyncServiceServer) Ping(context.Context, *PingRequest) (*PingResponse, error) {
	return nil, unimplemented("Ping")
}
func (UnimplementedSyncServiceServer) Account(context.Context, *AccountRequest) (*AccountResponse, error) {
	return nil, unimplemented("Account")
}
func (UnimplementedSyncServiceServer) SetTier(context.Context, *SetTierRequest) (*SetTierResponse, error) {
	return nil, unimplemented("SetTier")
}
func (UnimplementedSyncServiceServer) Upsert(context.Context, *UpsertRequest) (*UpsertResponse, error) {
	return nil, unimplemented("Upsert")
}
func (UnimplementedSyncServiceServer) Delete(context.Context, *DeleteRequest) (*DeleteResponse, error) {
	return nil, unimplemented("Delete")
}
func (UnimplementedSyncServiceServer) PushAll(context.Context, *PushAllRequest) (*PushAllResponse, error) {
	return nil, unimplemented("PushAll")
}
func (UnimplementedSyncServiceServer) PullAll(context.Context, *PullAllRequest) (*PullAllResponse, error) {
	return nil, unimplemented("PullAll")
}
func (UnimplementedSyncServiceServer) Count(context.Context, *CountRequest) (*CountResponse, error) {
	return nil, unimplemented("Count")
}
func (UnimplementedSyncServiceServer) PresignMedia(context.Context, *PresignMediaRequest) (*PresignMediaResponse, error) {
	return nil, unimplemented("PresignMedia")
}

type methodHandler = func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error)

// unary adapts a typed server method to the Struct-based wire format.
func unary[Req, Resp any](fullMethod string, call func(SyncServiceServer, context.Context, *Req) (*Resp, error)) methodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := &structpb.Struct{}
		if err := dec(in); err != nil {
			return nil, err
		}
		handler := func(ctx context.Context, req any) (any, error) {
			s, _ := req.(*structpb.Struct)
			r := new(Req)
			if err := Decode(s, r); err != nil {
				return nil, status.Error(codes.InvalidArgument, err.Error())
			}
			resp, err := call(srv.(SyncServiceServer), ctx, r)
			if err != nil {
				return nil, err
			}
			out, err := Encode(resp)
			if err != nil {
				return nil, status.Error(codes.Internal, err.Error())
			}
			return out, nil
		}
		if interceptor == nil {
			return handler(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, handler)
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SyncServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: unary(MethodRegister, SyncServiceServer.Register)},
		{MethodName: "Login", Handler: unary(MethodLogin, SyncServiceServer.Login)},
		{MethodName: "RefreshToken", Handler: unary(MethodRefreshToken, SyncServiceServer.RefreshToken)},
		{MethodName: "Ping", Handler: unary(MethodPing, SyncServiceServer.Ping)},
		{MethodName: "Account", Handler: unary(MethodAccount, SyncServiceServer.Account)},
		{MethodName: "SetTier", Handler: unary(MethodSetTier, SyncServiceServer.SetTier)},
		{MethodName: "Upsert", Handler: unary(MethodUpsert, SyncServiceServer.Upsert)},
		{MethodName: "Delete", Handler: unary(MethodDelete, SyncServiceServer.Delete)},
		{MethodName: "PushAll", Handler: unary(MethodPushAll, SyncServiceServer.PushAll)},
		{MethodName: "PullAll", Handler: unary(MethodPullAll, SyncServiceServer.PullAll)},
		{MethodName: "Count", Handler: unary(MethodCount, SyncServiceServer.Count)},
		{MethodName: "PresignMedia", Handler: unary(MethodPresignMedia, SyncServiceServer.PresignMedia)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gigbook/sync/v1/sync.proto",
}

// RegisterSyncServiceServer attaches srv to a gRPC server.
func RegisterSyncServiceServer(s grpc.ServiceRegistrar, srv SyncServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}
