// Command charm is a CLI client for the Charm admin API.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/charm/internal/convert"
	"github.com/and161185/charm/internal/model"
	grpcserver "github.com/and161185/charm/internal/server/grpc"
)

// ---- token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	UserID      int64     `json:"user_id"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "charm")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "charm")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveToken(tf tokenFile) error {
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(tokenPath(), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tf)
}

func loadToken() (string, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", err
	}
	if tf.AccessToken == "" || time.Now().After(tf.ExpiresAt) {
		return "", errors.New("no valid token (login required)")
	}
	return tf.AccessToken, nil
}

func removeToken() error {
	err := os.Remove(tokenPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// ---- grpc dial ----

type bearerCreds struct {
	token  string
	secure bool
}

func (b bearerCreds) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + b.token}, nil
}
func (b bearerCreds) RequireTransportSecurity() bool { return b.secure }

func loadTLS(caPath string, skipVerify bool) (credentials.TransportCredentials, error) {
	if skipVerify {
		return credentials.NewTLS(&tls.Config{InsecureSkipVerify: true}), nil
	}
	if caPath == "" {
		return credentials.NewClientTLSFromCert(nil, ""), nil
	}
	pem, err := os.ReadFile(caPath)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("bad CA cert")
	}
	return credentials.NewTLS(&tls.Config{RootCAs: pool}), nil
}

// ---- app ----

type app struct {
	addr       string
	caPath     string
	skipVerify bool
	plaintext  bool
	timeout    time.Duration
	out        io.Writer

	// dial is replaced in tests.
	dial func(ctx context.Context, bearer string) (*grpc.ClientConn, error)
}

func (a *app) defaultDial(ctx context.Context, bearer string) (*grpc.ClientConn, error) {
	var creds credentials.TransportCredentials
	if a.plaintext {
		creds = insecure.NewCredentials()
	} else {
		c, err := loadTLS(a.caPath, a.skipVerify)
		if err != nil {
			return nil, err
		}
		creds = c
	}
	opts := []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	if bearer != "" {
		opts = append(opts, grpc.WithPerRPCCredentials(bearerCreds{token: bearer, secure: !a.plaintext}))
	}
	//nolint:staticcheck // DialContext is supported through 1.x; migrate when grpc.NewClient is stable
	return grpc.DialContext(ctx, a.addr, opts...)
}

// call dials with the stored token (when authed) and runs fn.
func (a *app) call(cmd *cobra.Command, authed bool, fn func(context.Context, *grpcserver.AdminClient) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
	defer cancel()
	var bearer string
	if authed {
		tok, err := loadToken()
		if err != nil {
			return err
		}
		bearer = tok
	}
	dial := a.dial
	if dial == nil {
		dial = a.defaultDial
	}
	cc, err := dial(ctx, bearer)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer cc.Close()
	if err := fn(ctx, grpcserver.NewAdminClient(cc)); err != nil {
		if st, ok := status.FromError(err); ok {
			return fmt.Errorf("%s: %s", st.Code(), st.Message())
		}
		return err
	}
	return nil
}

func (a *app) print(s *structpb.Struct) error {
	b, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(s)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, string(b))
	return err
}

func idArg(args []string) (int64, error) {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("bad id %q", args[0])
	}
	return id, nil
}

// ---- commands ----

var (
	version   = "dev"
	buildDate = "unknown"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "charm",
		Short:         "Charm admin CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.out)
	pf := root.PersistentFlags()
	pf.StringVar(&a.addr, "addr", "localhost:8443", "server addr")
	pf.StringVar(&a.caPath, "cacert", "", "CA cert (PEM)")
	pf.BoolVar(&a.skipVerify, "insecure", false, "skip cert verify (dev)")
	pf.BoolVar(&a.plaintext, "plaintext", false, "connect without TLS (dev)")
	pf.DurationVar(&a.timeout, "timeout", 30*time.Second, "per-command timeout")

	root.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Print the client version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(a.out, "charm %s (%s)\n", version, buildDate)
			},
		},
		newLoginCmd(a),
		newLogoutCmd(a),
		newLogsCmd(a),
		newPostCmd(a),
	)
	return root
}

func newLoginCmd(a *app) *cobra.Command {
	var login, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and store the access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.call(cmd, false, func(ctx context.Context, c *grpcserver.AdminClient) error {
				req, err := structpb.NewStruct(map[string]any{"login": login, "password": password})
				if err != nil {
					return err
				}
				resp, err := c.Login(ctx, req)
				if err != nil {
					return err
				}
				tok, id, err := convert.TokensFromStruct(resp)
				if err != nil {
					return err
				}
				if err := saveToken(tokenFile{AccessToken: tok.AccessToken, ExpiresAt: tok.ExpiresAt, UserID: id}); err != nil {
					return fmt.Errorf("save token: %w", err)
				}
				fmt.Fprintf(a.out, "logged in as user %d until %s\n", id, tok.ExpiresAt.Format(time.RFC3339))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&login, "user", "u", "", "login or email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := a.call(cmd, true, func(ctx context.Context, c *grpcserver.AdminClient) error {
				_, err := c.Logout(ctx, nil)
				return err
			})
			if rmErr := removeToken(); rmErr != nil && err == nil {
				err = rmErr
			}
			return err
		},
	}
}

func newLogsCmd(a *app) *cobra.Command {
	logs := &cobra.Command{Use: "logs", Short: "Read the activity log"}

	var q model.LogQuery
	var objectType string
	list := &cobra.Command{
		Use:   "list",
		Short: "List records, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q.ObjectType = model.ObjectType(objectType)
			req, err := convert.LogQueryToStruct(q)
			if err != nil {
				return err
			}
			return a.call(cmd, true, func(ctx context.Context, c *grpcserver.AdminClient) error {
				resp, err := c.ListLogs(ctx, req)
				if err != nil {
					return err
				}
				return a.print(resp)
			})
		},
	}
	f := list.Flags()
	f.StringVar(&q.Action, "action", "", "filter by action")
	f.StringVar(&objectType, "object-type", "", "filter by object type")
	f.Int64Var(&q.ObjectID, "object-id", 0, "filter by object id")
	f.Int64Var(&q.UserID, "user-id", 0, "filter by acting user")
	f.IntVar(&q.Limit, "limit", 50, "max records")
	f.IntVar(&q.Offset, "offset", 0, "records to skip")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := idArg(args)
			if err != nil {
				return err
			}
			return a.call(cmd, true, func(ctx context.Context, c *grpcserver.AdminClient) error {
				req, err := structpb.NewStruct(map[string]any{"id": id})
				if err != nil {
					return err
				}
				resp, err := c.GetLog(ctx, req)
				if err != nil {
					return err
				}
				return a.print(resp)
			})
		},
	}
	logs.AddCommand(list, get)
	return logs
}

func newPostCmd(a *app) *cobra.Command {
	post := &cobra.Command{Use: "post", Short: "Inspect posts"}
	post.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show one post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := idArg(args)
			if err != nil {
				return err
			}
			return a.call(cmd, true, func(ctx context.Context, c *grpcserver.AdminClient) error {
				req, err := structpb.NewStruct(map[string]any{"id": id})
				if err != nil {
					return err
				}
				resp, err := c.GetPost(ctx, req)
				if err != nil {
					return err
				}
				return a.print(resp)
			})
		},
	})
	return post
}

// main dispatches subcommands and configures TLS/auth for RPC calls.
func main() {
	a := &app{out: os.Stdout}
	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
