package main

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/charm/internal/convert"
	"github.com/and161185/charm/internal/model"
	grpcserver "github.com/and161185/charm/internal/server/grpc"
)

func withTmpConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return filepath.Join(dir, "charm")
}

func Test_cfgDir_And_Paths(t *testing.T) {
	base := withTmpConfig(t)
	require.Equal(t, base, cfgDir())
	require.Equal(t, filepath.Join(base, "token.json"), tokenPath())
}

func Test_token_SaveLoadRemove(t *testing.T) {
	_ = withTmpConfig(t)

	_, err := loadToken()
	require.Error(t, err)

	require.NoError(t, saveToken(tokenFile{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Minute), UserID: 1}))
	tok, err := loadToken()
	require.NoError(t, err)
	require.Equal(t, "tok", tok)

	fi, err := os.Stat(tokenPath())
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), fi.Mode().Perm())

	require.NoError(t, saveToken(tokenFile{AccessToken: "tok2", ExpiresAt: time.Now().Add(-time.Minute)}))
	_, err = loadToken()
	require.Error(t, err)

	require.NoError(t, removeToken())
	require.NoError(t, removeToken())
}

func Test_bearerCreds(t *testing.T) {
	md, err := bearerCreds{token: "abc", secure: true}.GetRequestMetadata(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Bearer abc", md["authorization"])
	require.True(t, bearerCreds{secure: true}.RequireTransportSecurity())
	require.False(t, bearerCreds{}.RequireTransportSecurity())
}

func Test_loadTLS(t *testing.T) {
	c, err := loadTLS("", true)
	require.NoError(t, err)
	require.NotNil(t, c)

	_, err = loadTLS(filepath.Join(t.TempDir(), "missing.pem"), false)
	require.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.pem")
	require.NoError(t, os.WriteFile(bad, []byte("nope"), 0o600))
	_, err = loadTLS(bad, false)
	require.Error(t, err)
}

// fakeAdmin records requests and the bearer token it saw.
type fakeAdmin struct {
	lastQuery *structpb.Struct
	lastID    int64
	bearer    string
}

func (f *fakeAdmin) seen(ctx context.Context) {
	md, _ := metadata.FromIncomingContext(ctx)
	if v := md.Get("authorization"); len(v) > 0 {
		f.bearer = v[0]
	}
}

func (f *fakeAdmin) Login(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if convert.Str(in, "password") != "pw" {
		return nil, status.Error(codes.Unauthenticated, "bad credentials")
	}
	return convert.TokensToStruct(model.Tokens{AccessToken: "issued", ExpiresAt: time.Now().Add(time.Hour)}, 7)
}

func (f *fakeAdmin) Logout(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	f.seen(ctx)
	return &structpb.Struct{}, nil
}

func (f *fakeAdmin) ListLogs(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f.seen(ctx)
	f.lastQuery = in
	return convert.LogsToStruct([]model.Log{{ID: 2, Action: model.ActionLogin}, {ID: 1, Action: model.ActionCreate}})
}

func (f *fakeAdmin) GetLog(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f.seen(ctx)
	f.lastID, _ = convert.Int(in, "id")
	return convert.LogToStruct(model.Log{ID: f.lastID, Action: model.ActionLogout})
}

func (f *fakeAdmin) GetPost(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f.seen(ctx)
	f.lastID, _ = convert.Int(in, "id")
	return nil, status.Error(codes.NotFound, "get post: not found")
}

func newTestApp(t *testing.T) (*app, *fakeAdmin, *bytes.Buffer) {
	t.Helper()
	_ = withTmpConfig(t)
	fake := &fakeAdmin{}
	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer()
	grpcserver.RegisterAdminServer(gs, fake)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(func() { gs.Stop(); _ = lis.Close() })

	out := &bytes.Buffer{}
	a := &app{out: out}
	a.dial = func(ctx context.Context, bearer string) (*grpc.ClientConn, error) {
		opts := []grpc.DialOption{
			grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }),
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		}
		if bearer != "" {
			opts = append(opts, grpc.WithPerRPCCredentials(bearerCreds{token: bearer}))
		}
		//nolint:staticcheck // DialContext is supported through 1.x; migrate when grpc.NewClient is stable
		return grpc.DialContext(ctx, "bufnet", opts...)
	}
	return a, fake, out
}

func run(a *app, args ...string) error {
	root := newRootCmd(a)
	root.SetArgs(args)
	return root.Execute()
}

func TestCLI_LoginThenLogs(t *testing.T) {
	a, fake, out := newTestApp(t)

	require.Error(t, run(a, "logs", "list"), "token is required before login")

	require.NoError(t, run(a, "login", "-u", "admin", "-p", "pw"))
	require.Contains(t, out.String(), "logged in as user 7")

	out.Reset()
	require.NoError(t, run(a, "logs", "list", "--action", "login", "--object-type", "user", "--limit", "5"))
	require.Equal(t, "Bearer issued", fake.bearer)
	q, err := convert.LogQueryFromStruct(fake.lastQuery)
	require.NoError(t, err)
	require.Equal(t, model.LogQuery{Action: "login", ObjectType: model.ObjectUser, Limit: 5}, q)
	require.Contains(t, out.String(), `"logs"`)

	out.Reset()
	require.NoError(t, run(a, "logs", "get", "12"))
	require.Equal(t, int64(12), fake.lastID)
	require.Contains(t, out.String(), `"logout"`)

	err = run(a, "post", "get", "3")
	require.Error(t, err)
	require.True(t, strings.HasPrefix(err.Error(), "NotFound"), err.Error())

	require.Error(t, run(a, "logs", "get", "abc"))

	require.NoError(t, run(a, "logout"))
	_, err = loadToken()
	require.Error(t, err)
}

func TestCLI_LoginRejected(t *testing.T) {
	a, _, _ := newTestApp(t)

	err := run(a, "login", "-u", "admin", "-p", "wrong")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Unauthenticated")
	_, err = loadToken()
	require.Error(t, err)

	require.Error(t, run(a, "login", "-u", "admin"), "password flag is required")
}

func TestCLI_Version(t *testing.T) {
	a, _, out := newTestApp(t)
	require.NoError(t, run(a, "version"))
	require.Equal(t, "charm dev (unknown)\n", out.String())
}
