package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dmitrijs2005/gigbook/internal/client/merge"
	"github.com/dmitrijs2005/gigbook/internal/client/services"
	"github.com/dmitrijs2005/gigbook/internal/schema"
	"github.com/spf13/cobra"
)

func printSyncReport(out io.Writer, rep services.SyncReport) {
	fmt.Fprintf(out, "Sync %s: pushed %d, pulled %d (%d new, %d updated), deletes sent %d\n",
		renderState(rep.State), rep.Pushed, rep.Pulled,
		rep.Reconciled.Added, rep.Reconciled.Updated, rep.Deleted)
}

func newSyncCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push local changes and pull from the cloud",
		Long: `Run a full sync: retry remembered deletes, push pending records, then pull
everything your tier can see. A failing collection does not stop the others.`,
		Args:    cobra.NoArgs,
		GroupID: "sync",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.open(cmd.Context())
			if err != nil {
				return err
			}
			full, _ := cmd.Flags().GetBool("full")

			// Pick up a tier change before deciding what to pull.
			if _, ok := app.auth.Session(); ok {
				ctx, cancel := context.WithTimeout(cmd.Context(), app.config.RequestTimeout)
				_, _ = app.auth.RefreshAccount(ctx)
				cancel()
			}

			rep, err := app.sync.FullSync(cmd.Context(), services.SyncOptions{FullPush: full})
			printSyncReport(cmd.OutOrStdout(), rep)
			if err != nil {
				return fmt.Errorf("sync: %w", err)
			}
			hintMerge(cmd.Context(), app, cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().Bool("full", false, "push every local record, not only pending ones")
	return cmd
}

func formatCounts(c merge.Counts) string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %d", k, c[schema.Collection(k)]))
	}
	return strings.Join(parts, ", ")
}

func newMergeCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Combine records from the other platform",
		Long: `Paid accounts can merge records created on the other platform into this
device and push the combined set back, or keep the platforms separate.`,
		Args:    cobra.NoArgs,
		GroupID: "sync",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.open(cmd.Context())
			if err != nil {
				return err
			}
			if _, ok := app.auth.Session(); !ok {
				return errors.New("not logged in")
			}
			out := cmd.OutOrStdout()
			ctx := cmd.Context()

			rctx, cancel := context.WithTimeout(ctx, app.config.RequestTimeout)
			_, _ = app.auth.RefreshAccount(rctx)
			cancel()

			state, counts, err := app.merge.Check(ctx)
			if errors.Is(err, merge.ErrCrossPlatformLocked) {
				return fmt.Errorf("%w: upgrade to paid to see %s records", err, app.config.Platform.Other())
			}
			if err != nil {
				return err
			}
			if state != merge.Detected {
				fmt.Fprintf(out, "Nothing on %s to merge\n", renderPlatform(app.config.Platform.Other()))
				return nil
			}
			fmt.Fprintf(out, "Found on %s: %s\n", renderPlatform(app.config.Platform.Other()), formatCounts(counts))

			if keep, _ := cmd.Flags().GetBool("keep-separate"); keep {
				if err := app.merge.KeepSeparate(); err != nil {
					return err
				}
				success(out, "Keeping platforms separate")
				return nil
			}

			yes, _ := cmd.Flags().GetBool("yes")
			if !yes {
				ok, err := rt.confirm(fmt.Sprintf("Merge %d record(s) into this device?", counts.Total()))
				if err != nil {
					return err
				}
				if !ok {
					if err := app.merge.KeepSeparate(); err != nil {
						return err
					}
					fmt.Fprintln(out, "Keeping platforms separate")
					return nil
				}
			}

			rep, err := app.merge.Merge(ctx)
			fmt.Fprintf(out, "Merge: pulled %d (%d new, %d updated), pushed %d\n",
				rep.Pulled, rep.Reconciled.Added, rep.Reconciled.Updated, rep.Pushed)
			if err != nil {
				return fmt.Errorf("merge: %w", err)
			}
			success(out, "Platforms merged")
			return nil
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "merge without asking")
	cmd.Flags().Bool("keep-separate", false, "decline the merge")
	return cmd
}

func newUploadCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a media file and print its public URL",
		Long: `Upload a file to media storage. With --attach the URL is written into a
record field.

Examples:
  gigbook upload poster.png
  gigbook upload proof.jpg --attach proof_of_work/6f1c... --field mediaUri`,
		Args:    cobra.ExactArgs(1),
		GroupID: "sync",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			var (
				target schema.Collection
				id     string
			)
			attach, _ := cmd.Flags().GetString("attach")
			if attach != "" {
				name, rid, ok := strings.Cut(attach, "/")
				if !ok || rid == "" {
					return fmt.Errorf("--attach expects collection/id, got %q", attach)
				}
				if target, err = parseCollection(name); err != nil {
					return err
				}
				id = rid
			}

			app, err := rt.open(cmd.Context())
			if err != nil {
				return err
			}
			if target != "" {
				if _, err := app.store.Get(cmd.Context(), target, id); err != nil {
					return notFound(target, id, err)
				}
			}

			url, ok := app.gateway.UploadMedia(cmd.Context(), data, filepath.Base(args[0]))
			if !ok {
				return errors.New("upload failed: not logged in, offline or media storage unavailable")
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)

			if target != "" {
				field, _ := cmd.Flags().GetString("field")
				if _, err := app.store.Update(cmd.Context(), target, id, map[string]any{field: url}); err != nil {
					return err
				}
				success(cmd.OutOrStdout(), "Attached to %s %s as %s", target, id, field)
			}
			return nil
		},
	}
	cmd.Flags().String("attach", "", "record to attach the URL to, as collection/id")
	cmd.Flags().String("field", "mediaUri", "field that receives the URL")
	return cmd
}
