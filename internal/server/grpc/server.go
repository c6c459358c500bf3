// Package grpcserver exposes the Charm admin API over gRPC.
package grpcserver

import (
	"context"
	"errors"
	"net"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/charm/internal/auth"
	"github.com/and161185/charm/internal/convert"
	"github.com/and161185/charm/internal/errs"
	"github.com/and161185/charm/internal/model"
	"github.com/and161185/charm/internal/service"
)

// Capabilities checked by the handlers.
const (
	CapViewLogs  = "manage_options"
	CapReadPosts = "edit_posts"
)

// LogReader reads stored audit records.
type LogReader interface {
	Get(ctx context.Context, id int64) (*model.Log, error)
	List(ctx context.Context, q model.LogQuery) ([]model.Log, error)
}

// PostReader loads posts by id.
type PostReader interface {
	FromID(ctx context.Context, id int64) (*model.Post, error)
}

// Gate reports whether a user holds a capability.
type Gate interface {
	UserCan(ctx context.Context, userID int64, capability string) (bool, error)
}

// Server wires services into gRPC handlers.
type Server struct {
	auth   service.AuthService
	logs   LogReader
	posts  PostReader
	gate   Gate
	tokens *auth.Tokens
}

var _ AdminServer = (*Server)(nil)

// New constructs a gRPC server with injected services.
func New(authSvc service.AuthService, logs LogReader, posts PostReader, gate Gate, tokens *auth.Tokens) *Server {
	return &Server{auth: authSvc, logs: logs, posts: posts, gate: gate, tokens: tokens}
}

// toStatus maps a domain error onto a gRPC status.
func toStatus(op string, err error) error {
	if err == nil {
		return nil
	}
	var c codes.Code
	switch errs.CodeOf(err) {
	case errs.CodeNotFound:
		c = codes.NotFound
	case errs.CodeAlreadyExists:
		c = codes.AlreadyExists
	case errs.CodeInvalid:
		c = codes.InvalidArgument
	case errs.CodeNotPersisted, errs.CodeAlreadyPersisted:
		c = codes.FailedPrecondition
	case errs.CodeUnauthorized:
		return status.Error(codes.Unauthenticated, "bad credentials")
	case errs.CodeRateLimited:
		return status.Error(codes.ResourceExhausted, "rate limited")
	case errs.CodeCanceled:
		c = codes.Canceled
	default:
		return status.Errorf(codes.Internal, "%s failed", op)
	}
	return status.Errorf(c, "%s: %v", op, err)
}

func remoteIP(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// --- Auth ---

// Login authenticates {"login","password"} and returns an access token.
func (s *Server) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	login, password := convert.Str(req, "login"), convert.Str(req, "password")
	if login == "" || password == "" {
		return nil, status.Error(codes.InvalidArgument, "empty login/password")
	}
	tok, u, err := s.auth.LoginWithIP(ctx, login, password, remoteIP(ctx))
	if err != nil {
		return nil, toStatus("login", err)
	}
	out, err := convert.TokensToStruct(tok, u.ID)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "login: %v", err)
	}
	return out, nil
}

// Logout ends the session of the caller.
func (s *Server) Logout(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	ctx, userID, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.auth.Logout(ctx, userID); err != nil {
		return nil, toStatus("logout", err)
	}
	return &structpb.Struct{}, nil
}

// --- Logs ---

// ListLogs returns audit records matching the filters in req, newest first.
func (s *Server) ListLogs(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ctx, err := s.require(ctx, CapViewLogs)
	if err != nil {
		return nil, err
	}
	q, err := convert.LogQueryFromStruct(req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "bad query: %v", err)
	}
	logs, err := s.logs.List(ctx, q)
	if err != nil {
		return nil, toStatus("list logs", err)
	}
	out, err := convert.LogsToStruct(logs)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "list logs: %v", err)
	}
	return out, nil
}

// GetLog returns the record {"id": n}.
func (s *Server) GetLog(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ctx, err := s.require(ctx, CapViewLogs)
	if err != nil {
		return nil, err
	}
	id, err := idFrom(req)
	if err != nil {
		return nil, err
	}
	l, err := s.logs.Get(ctx, id)
	if err != nil {
		return nil, toStatus("get log", err)
	}
	out, err := convert.LogToStruct(*l)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "get log: %v", err)
	}
	return out, nil
}

// --- Posts ---

// GetPost returns the post {"id": n}.
func (s *Server) GetPost(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ctx, err := s.require(ctx, CapReadPosts)
	if err != nil {
		return nil, err
	}
	id, err := idFrom(req)
	if err != nil {
		return nil, err
	}
	p, err := s.posts.FromID(ctx, id)
	if err != nil {
		return nil, toStatus("get post", err)
	}
	out, err := convert.PostToStruct(*p)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "get post: %v", err)
	}
	return out, nil
}

func idFrom(req *structpb.Struct) (int64, error) {
	id, err := convert.Int(req, "id")
	if err != nil || id <= 0 {
		return 0, status.Error(codes.InvalidArgument, "bad id")
	}
	return id, nil
}

// --- auth helpers ---

// actor verifies the bearer token and returns ctx carrying the caller id.
func (s *Server) actor(ctx context.Context) (context.Context, int64, error) {
	tok, err := bearerTokenFromMD(ctx)
	if err != nil {
		return ctx, 0, status.Error(codes.Unauthenticated, "no auth")
	}
	id, err := s.tokens.Parse(tok)
	if err != nil {
		return ctx, 0, status.Error(codes.Unauthenticated, "no auth")
	}
	return auth.WithUserID(ctx, id), id, nil
}

// require authenticates the caller and checks capability.
func (s *Server) require(ctx context.Context, capability string) (context.Context, error) {
	ctx, id, err := s.actor(ctx)
	if err != nil {
		return ctx, err
	}
	ok, err := s.gate.UserCan(ctx, id, capability)
	if err != nil {
		return ctx, toStatus("authorize", err)
	}
	if !ok {
		return ctx, status.Errorf(codes.PermissionDenied, "missing capability %q", capability)
	}
	return ctx, nil
}

func bearerTokenFromMD(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", errors.New("no metadata")
	}
	for _, v := range md.Get("authorization") {
		v = strings.TrimSpace(v)
		if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
			t := strings.TrimSpace(v[7:])
			if t != "" {
				return t, nil
			}
		}
	}
	return "", errors.New("no bearer token")
}
