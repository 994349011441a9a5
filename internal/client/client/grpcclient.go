package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/gigbook/internal/common"
	"github.com/dmitrijs2005/gigbook/internal/syncpb"
	"github.com/dmitrijs2005/gigbook/internal/tier"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      syncpb.SyncServiceClient

	mu         sync.RWMutex
	session    Session
	hasSession bool
	onTokens   func(Session)

	// serialises refreshes so a rotated refresh token is used only once
	refreshMu sync.Mutex
}

var _ Client = (*GRPCClient)(nil)

func withHeader(ctx context.Context, name, value string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(name)
	if value != "" {
		md.Set(name, value)
	}
	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) currentTokens() (access, refresh string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.AccessToken, s.session.RefreshToken
}

func isTokenExpired(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == codes.Unauthenticated && st.Message() == common.ErrTokenExpired.Error()
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if method == syncpb.MethodRefreshToken {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	access, _ := s.currentTokens()
	err := invoker(withHeader(ctx, common.AccessTokenHeaderName, access), method, req, reply, cc, opts...)
	if err == nil || !isTokenExpired(err) {
		return err
	}

	refreshed, rerr := s.refresh(ctx, access)
	if rerr != nil {
		return rerr
	}
	if !refreshed {
		return err
	}

	access, _ = s.currentTokens()
	return invoker(withHeader(ctx, common.AccessTokenHeaderName, access), method, req, reply, cc, opts...)
}

// refresh rotates the token pair unless another call already replaced
// stale. It reports false when there is no refresh token to use.
func (s *GRPCClient) refresh(ctx context.Context, stale string) (bool, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	access, refreshToken := s.currentTokens()
	if access != stale {
		return true, nil
	}
	if refreshToken == "" {
		return false, nil
	}

	resp, err := s.client.RefreshToken(ctx, &syncpb.RefreshTokenRequest{RefreshToken: refreshToken})
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	s.session.AccessToken = resp.AccessToken
	s.session.RefreshToken = resp.RefreshToken
	snapshot, cb := s.session, s.onTokens
	s.mu.Unlock()

	if cb != nil {
		cb(snapshot)
	}
	return true, nil
}

// NewGRPCClient dials endpointURL lazily. Extra options are appended after
// the defaults, so tests can swap the dialer.
func NewGRPCClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, dialOpts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = syncpb.NewSyncServiceClient(conn)
	return c, nil
}

// OnTokens registers a callback fired after every successful refresh, so
// the rotated pair can be persisted.
func (s *GRPCClient) OnTokens(fn func(Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTokens = fn
}

func (s *GRPCClient) SetSession(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = *sess
	s.hasSession = sess.AccessToken != ""
}

func (s *GRPCClient) ClearSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = Session{}
	s.hasSession = false
}

func (s *GRPCClient) Session() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session, s.hasSession
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) Register(ctx context.Context, email, password string) (string, error) {
	resp, err := s.client.Register(ctx, &syncpb.RegisterRequest{Email: email, Password: password})
	if err != nil {
		return "", s.mapError(err)
	}
	return resp.UserID, nil
}

// Login authenticates and installs the new session on the client.
func (s *GRPCClient) Login(ctx context.Context, email, password string) (*Session, error) {
	resp, err := s.client.Login(ctx, &syncpb.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, s.mapError(err)
	}

	t, err := tier.Parse(resp.Tier)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		UserID:       resp.UserID,
		Email:        email,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		Tier:         t,
	}
	s.SetSession(sess)
	return sess, nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, &syncpb.PingRequest{})
	if err != nil {
		return s.mapError(err)
	}
	if resp.ServerTime == "" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) Account(ctx context.Context) (*syncpb.AccountResponse, error) {
	resp, err := s.client.Account(ctx, &syncpb.AccountRequest{})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) SetTier(ctx context.Context, adminKey, email string, t tier.Tier) error {
	ctx = withHeader(ctx, common.AdminKeyHeaderName, adminKey)
	_, err := s.client.SetTier(ctx, &syncpb.SetTierRequest{Email: email, Tier: string(t)})
	return s.mapError(err)
}

func (s *GRPCClient) Upsert(ctx context.Context, collection string, row syncpb.Row) (syncpb.Row, error) {
	resp, err := s.client.Upsert(ctx, &syncpb.UpsertRequest{Collection: collection, Row: row})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Row, nil
}

func (s *GRPCClient) Delete(ctx context.Context, collection, id string) (bool, error) {
	resp, err := s.client.Delete(ctx, &syncpb.DeleteRequest{Collection: collection, ID: id})
	if err != nil {
		return false, s.mapError(err)
	}
	return resp.Deleted, nil
}

func (s *GRPCClient) PushAll(ctx context.Context, collection string, rows []syncpb.Row) ([]syncpb.Row, error) {
	resp, err := s.client.PushAll(ctx, &syncpb.PushAllRequest{Collection: collection, Rows: rows})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Rows, nil
}

func (s *GRPCClient) PullAll(ctx context.Context, current string, platforms, collections []string) (map[string][]syncpb.Row, error) {
	resp, err := s.client.PullAll(ctx, &syncpb.PullAllRequest{
		CurrentPlatform: current,
		Platforms:       platforms,
		Collections:     collections,
	})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Collections, nil
}

func (s *GRPCClient) Count(ctx context.Context, collection, current, platform string) (int64, error) {
	resp, err := s.client.Count(ctx, &syncpb.CountRequest{Collection: collection, CurrentPlatform: current, Platform: platform})
	if err != nil {
		return 0, s.mapError(err)
	}
	return resp.Count, nil
}

func (s *GRPCClient) PresignMedia(ctx context.Context, filename string) (*syncpb.PresignMediaResponse, error) {
	resp, err := s.client.PresignMedia(ctx, &syncpb.PresignMediaRequest{Filename: filename})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrUnavailable
		}
		return fmt.Errorf("rpc error: %w", err)
	}

	msg := st.Message()
	switch st.Code() {
	case codes.Unauthenticated:
		return ErrUnauthorized
	case codes.PermissionDenied:
		if strings.Contains(msg, common.ErrOwnershipConflict.Error()) {
			return fmt.Errorf("%w: %s", common.ErrOwnershipConflict, msg)
		}
		if strings.Contains(msg, common.ErrTierLocked.Error()) {
			return fmt.Errorf("%w: %s", common.ErrTierLocked, msg)
		}
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.AlreadyExists:
		return common.ErrorAlreadyExists
	case codes.NotFound:
		return common.ErrorNotFound
	case codes.InvalidArgument:
		if strings.Contains(msg, common.ErrUnknownCollection.Error()) {
			return fmt.Errorf("%w: %s", common.ErrUnknownCollection, msg)
		}
		return fmt.Errorf("%w: %s", common.ErrorValidation, msg)
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
