package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/gigbook/internal/client/merge"
	"github.com/dmitrijs2005/gigbook/internal/client/services"
	"github.com/dmitrijs2005/gigbook/internal/client/status"
	"github.com/dmitrijs2005/gigbook/internal/schema"
	"github.com/dmitrijs2005/gigbook/internal/tier"
	"github.com/spf13/cobra"
)

// credentials returns the email from args or a prompt, and the password
// from --password or the terminal.
func (r *runtime) credentials(cmd *cobra.Command, args []string) (string, string, error) {
	email := ""
	if len(args) > 0 {
		email = args[0]
	} else {
		var err error
		if email, err = GetSimpleText(r.in, "Email", cmd.ErrOrStderr()); err != nil {
			return "", "", err
		}
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return "", "", errors.New("email is required")
	}

	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		var err error
		if password, err = r.password(cmd.ErrOrStderr()); err != nil {
			return "", "", err
		}
	}
	return email, password, nil
}

func newRegisterCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "register [email]",
		Short:   "Create an account on the sync server",
		Args:    cobra.MaximumNArgs(1),
		GroupID: "account",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.open(cmd.Context())
			if err != nil {
				return err
			}
			email, password, err := rt.credentials(cmd, args)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), app.config.RequestTimeout)
			defer cancel()
			id, err := app.auth.Register(ctx, email, password)
			if err != nil {
				return fmt.Errorf("register: %w", err)
			}
			success(cmd.OutOrStdout(), "Registered %s (%s). Run 'gigbook login %s' next.", email, id, email)
			return nil
		},
	}
	cmd.Flags().String("password", "", "password (prompted when omitted)")
	return cmd
}

func newLoginCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login [email]",
		Short: "Log in and push everything on this device",
		Long: `Log in, remember the session on this device and run a first sync that
pushes every local record, including ones written before logging in.
Logging in as a different account than before drops the previous
account's records from this device.`,
		Args:    cobra.MaximumNArgs(1),
		GroupID: "account",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.open(cmd.Context())
			if err != nil {
				return err
			}
			email, password, err := rt.credentials(cmd, args)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), app.config.RequestTimeout)
			sess, err := app.auth.Login(ctx, email, password)
			cancel()
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			out := cmd.OutOrStdout()
			success(out, "Logged in as %s (%s tier)", sess.Email, sess.Tier)

			rep, err := app.sync.FullSync(cmd.Context(), services.SyncOptions{FullPush: true})
			printSyncReport(out, rep)
			if err != nil {
				warning(cmd.ErrOrStderr(), "first sync incomplete: %v", err)
				return nil
			}
			hintMerge(cmd.Context(), app, out)
			return nil
		},
	}
	cmd.Flags().String("password", "", "password (prompted when omitted)")
	return cmd
}

// hintMerge tells a paid user when the other platform holds data.
func hintMerge(ctx context.Context, app *App, out io.Writer) {
	state, counts, err := app.merge.Check(ctx)
	if err != nil || state != merge.Detected {
		return
	}
	fmt.Fprintf(out, "Found %d record(s) created on %s. Run 'gigbook merge' to combine them.\n",
		counts.Total(), renderPlatform(app.config.Platform.Other()))
}

func newLogoutCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:     "logout",
		Short:   "Forget the session on this device",
		Long:    `Forget the session. Local records stay on the device until another account logs in.`,
		Args:    cobra.NoArgs,
		GroupID: "account",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := app.auth.Logout(cmd.Context()); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newStatusCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "status",
		Short:   "Show session, tier and local sync state",
		Args:    cobra.NoArgs,
		GroupID: "account",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.open(cmd.Context())
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			offline, _ := cmd.Flags().GetBool("offline")
			sess, ok := app.auth.Session()
			t := app.auth.Tier()
			if ok && !offline {
				rctx, cancel := context.WithTimeout(ctx, app.config.RequestTimeout)
				if fresh, err := app.auth.RefreshAccount(rctx); err == nil {
					t = fresh
				} else {
					warning(cmd.ErrOrStderr(), "could not reach server, showing cached tier: %v", err)
				}
				cancel()
			}

			fmt.Fprintln(out, titleStyle.Render("Account"))
			if ok {
				fmt.Fprintf(out, "  %s %s\n", keyStyle.Render("email:"), sess.Email)
			} else {
				fmt.Fprintf(out, "  %s %s\n", keyStyle.Render("email:"), subtleStyle.Render("not logged in"))
			}
			fmt.Fprintf(out, "  %s %s\n", keyStyle.Render("tier:"), t)
			fmt.Fprintf(out, "  %s %s\n", keyStyle.Render("platform:"), renderPlatform(app.config.Platform))
			visible := make([]string, 0, 2)
			for _, p := range tier.AccessiblePlatforms(t, app.config.Platform) {
				visible = append(visible, renderPlatform(p))
			}
			fmt.Fprintf(out, "  %s %s\n", keyStyle.Render("visible:"), strings.Join(visible, ", "))

			fmt.Fprintln(out, titleStyle.Render("Records"))
			for _, c := range schema.Collections() {
				total, pending, err := app.store.Counts(ctx, c)
				if err != nil {
					return err
				}
				line := fmt.Sprintf("  %-15s %d", c, total)
				if pending > 0 {
					line += warningStyle.Render(fmt.Sprintf("  (%d pending)", pending))
				}
				fmt.Fprintln(out, line)
			}
			tombstones, err := app.store.PendingDeletes(ctx)
			if err != nil {
				return err
			}
			if len(tombstones) > 0 {
				fmt.Fprintf(out, "  %s\n", warningStyle.Render(fmt.Sprintf("%d delete(s) waiting to sync", len(tombstones))))
			}

			return printLastSync(ctx, app, out)
		},
	}
	cmd.Flags().Bool("offline", false, "do not contact the server")
	return cmd
}

func printLastSync(ctx context.Context, app *App, out io.Writer) error {
	meta := app.rm.Metadata(app.rm.Conn())
	state, ok, err := meta.Get(ctx, services.KeyLastSyncState)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, titleStyle.Render("Sync"))
	if !ok {
		fmt.Fprintf(out, "  %s\n", subtleStyle.Render("never synced"))
		return nil
	}
	at, _, err := meta.Get(ctx, services.KeyLastSyncAt)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "  %s %s at %s\n", keyStyle.Render("last:"), renderState(status.State(state)), at)
	if msg, ok, _ := meta.Get(ctx, services.KeyLastSyncError); ok && msg != "" {
		fmt.Fprintf(out, "  %s %s\n", keyStyle.Render("error:"), errorStyle.Render(msg))
	}
	return nil
}

func newAdminCmd(rt *runtime) *cobra.Command {
	admin := &cobra.Command{
		Use:    "admin",
		Short:  "Operator commands",
		Hidden: true,
	}

	setTier := &cobra.Command{
		Use:   "set-tier <email> <free|paid>",
		Short: "Change an account's tier",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := tier.Parse(args[1])
			if err != nil {
				return err
			}
			key, _ := cmd.Flags().GetString("admin-key")
			if key == "" {
				key = rt.v.GetString("admin_key")
			}
			if key == "" {
				return errors.New("admin key is required (--admin-key or GIGBOOK_ADMIN_KEY)")
			}

			app, err := rt.open(cmd.Context())
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), app.config.RequestTimeout)
			defer cancel()
			if err := app.auth.SetTier(ctx, key, args[0], t); err != nil {
				return fmt.Errorf("set tier: %w", err)
			}
			success(cmd.OutOrStdout(), "%s is now on the %s tier", args[0], t)
			return nil
		},
	}
	setTier.Flags().String("admin-key", "", "server admin key")

	admin.AddCommand(setTier)
	return admin
}
