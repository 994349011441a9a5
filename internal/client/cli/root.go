package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/dmitrijs2005/gigbook/internal/client/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
)

// runtime carries what the commands share: settings, the wired App once
// opened, and the interactive seams tests replace.
type runtime struct {
	v        *viper.Viper
	dialOpts []grpc.DialOption
	in       *bufio.Reader
	password func(w io.Writer) (string, error)
	confirm  func(title string) (bool, error)

	app *App
}

// Option adjusts the runtime before commands run.
type Option func(*runtime)

// WithDialOptions appends gRPC dial options, for example a custom dialer.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(r *runtime) { r.dialOpts = append(r.dialOpts, opts...) }
}

// WithPasswordReader replaces the terminal password prompt.
func WithPasswordReader(fn func(w io.Writer) (string, error)) Option {
	return func(r *runtime) { r.password = fn }
}

// WithConfirm replaces the interactive yes/no prompt.
func WithConfirm(fn func(title string) (bool, error)) Option {
	return func(r *runtime) { r.confirm = fn }
}

// WithInput replaces stdin for line prompts.
func WithInput(in io.Reader) Option {
	return func(r *runtime) { r.in = bufio.NewReader(in) }
}

func confirmForm(title string) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}

// open loads settings and wires the App on first use.
func (r *runtime) open(ctx context.Context) (*App, error) {
	if r.app != nil {
		return r.app, nil
	}
	cfg, err := config.Load(r.v)
	if err != nil {
		return nil, err
	}
	app, err := NewApp(ctx, cfg, r.dialOpts...)
	if err != nil {
		return nil, err
	}
	r.app = app
	return app, nil
}

func (r *runtime) close() error {
	if r.app == nil {
		return nil
	}
	err := r.app.Close()
	r.app = nil
	return err
}

// newRootCmd builds the gigbook command tree around rt.
func newRootCmd(rt *runtime) *cobra.Command {
	root := &cobra.Command{
		Use:   "gigbook",
		Short: "Local-first planner that syncs across devices",
		Long: `gigbook keeps events, routines, people and learning progress on this
device and syncs them with your account when a connection is available.

Records written here are tagged with this device's platform (web or native).
Free accounts see only their own platform; paid accounts see both.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("server", "", "sync server address (host:port)")
	pf.String("data-dir", "", "directory holding the device database and config.yaml")
	pf.String("platform", "", "platform this device writes as: web or native")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	for key, flag := range map[string]string{
		config.KeyServerAddr: "server",
		config.KeyDataDir:    "data-dir",
		config.KeyPlatform:   "platform",
		config.KeyLogLevel:   "log-level",
	} {
		_ = rt.v.BindPFlag(key, pf.Lookup(flag))
	}

	root.AddGroup(
		&cobra.Group{ID: "account", Title: "Account:"},
		&cobra.Group{ID: "records", Title: "Records:"},
		&cobra.Group{ID: "sync", Title: "Sync:"},
	)

	root.AddCommand(
		newRegisterCmd(rt),
		newLoginCmd(rt),
		newLogoutCmd(rt),
		newStatusCmd(rt),
		newAddCmd(rt),
		newEditCmd(rt),
		newListCmd(rt),
		newShowCmd(rt),
		newDeleteCmd(rt),
		newSyncCmd(rt),
		newMergeCmd(rt),
		newUploadCmd(rt),
		newAdminCmd(rt),
	)
	return root
}

// Execute runs the CLI with args. The App, if any command opened one, is
// closed before returning so background pushes get to finish.
func Execute(ctx context.Context, args []string, out, errOut io.Writer, opts ...Option) error {
	rt := &runtime{
		v:        config.NewViper(),
		in:       bufio.NewReader(os.Stdin),
		password: GetPassword,
		confirm:  confirmForm,
	}
	for _, opt := range opts {
		opt(rt)
	}

	root := newRootCmd(rt)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.ExecuteContext(ctx)
	if cerr := rt.close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		failure(errOut, "%v", err)
	}
	return err
}
