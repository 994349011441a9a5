package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gigbook/internal/common"
	"github.com/dmitrijs2005/gigbook/internal/schema"
	"github.com/spf13/cobra"
)

func collectionNames() string {
	names := make([]string, 0, len(schema.Collections()))
	for _, c := range schema.Collections() {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

func parseCollection(s string) (schema.Collection, error) {
	c, err := schema.ParseCollection(s)
	if err != nil {
		return "", fmt.Errorf("%w (one of: %s)", err, collectionNames())
	}
	return c, nil
}

func completeCollections(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	out := make([]string, 0, len(schema.Collections()))
	for _, c := range schema.Collections() {
		out = append(out, string(c))
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

func notFound(c schema.Collection, id string, err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("no %s record %s", c, id)
	}
	return err
}

func newAddCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "add <collection> key=value...",
		Short: "Create a record",
		Long: `Create a record on this device. It is pushed right away when logged in
and online, otherwise on the next sync.

Values that parse as JSON keep their type; anything else is a string.

Examples:
  gigbook add events title="Gig at Lou's" startTime=2025-05-01T20:00:00Z
  gigbook add people name=Ada tags='["band"]'`,
		Args:              cobra.MinimumNArgs(2),
		GroupID:           "records",
		ValidArgsFunction: completeCollections,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := parseCollection(args[0])
			if err != nil {
				return err
			}
			fields, err := ParseFields(args[1:])
			if err != nil {
				return err
			}
			app, err := rt.open(cmd.Context())
			if err != nil {
				return err
			}
			rec, err := app.store.Create(cmd.Context(), c, fields)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "CREATED %s %s\n", c, rec.ID)
			return nil
		},
	}
}

func newEditCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <collection> <id> key=value...",
		Short: "Change fields of a record",
		Long: `Merge fields into a record. "key=" removes the field.

Examples:
  gigbook edit events 6f1c... title="Late show"
  gigbook edit events 6f1c... notes=`,
		Args:              cobra.MinimumNArgs(3),
		GroupID:           "records",
		ValidArgsFunction: completeCollections,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := parseCollection(args[0])
			if err != nil {
				return err
			}
			fields, err := ParseFields(args[2:])
			if err != nil {
				return err
			}
			app, err := rt.open(cmd.Context())
			if err != nil {
				return err
			}
			rec, err := app.store.Update(cmd.Context(), c, args[1], fields)
			if err != nil {
				return notFound(c, args[1], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "UPDATED %s %s\n", c, rec.ID)
			return nil
		},
	}
}

func newListCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <collection>",
		Short: "List records visible on this device",
		Long: `List records of a collection. Free accounts see only records created on
this device's platform; paid accounts see both platforms.`,
		Aliases:           []string{"ls"},
		Args:              cobra.ExactArgs(1),
		GroupID:           "records",
		ValidArgsFunction: completeCollections,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := parseCollection(args[0])
			if err != nil {
				return err
			}
			app, err := rt.open(cmd.Context())
			if err != nil {
				return err
			}
			recs, err := app.store.List(cmd.Context(), c)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(recs) == 0 {
				fmt.Fprintln(out, subtleStyle.Render(fmt.Sprintf("No %s", c)))
				return nil
			}
			for _, r := range recs {
				fmt.Fprintln(out, summary(r))
			}
			return nil
		},
	}
	return cmd
}

func newShowCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:               "show <collection> <id>",
		Short:             "Show every field of a record",
		Args:              cobra.ExactArgs(2),
		GroupID:           "records",
		ValidArgsFunction: completeCollections,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := parseCollection(args[0])
			if err != nil {
				return err
			}
			app, err := rt.open(cmd.Context())
			if err != nil {
				return err
			}
			rec, err := app.store.Get(cmd.Context(), c, args[1])
			if err != nil {
				return notFound(c, args[1], err)
			}
			fmt.Fprint(cmd.OutOrStdout(), detail(rec))
			return nil
		},
	}
}

func newDeleteCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <collection> <id>",
		Short: "Delete a record here and in the cloud",
		Long: `Delete a record. The cloud copy is removed right away when online;
otherwise the delete is remembered and retried on the next sync.`,
		Aliases:           []string{"rm"},
		Args:              cobra.ExactArgs(2),
		GroupID:           "records",
		ValidArgsFunction: completeCollections,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := parseCollection(args[0])
			if err != nil {
				return err
			}
			app, err := rt.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := app.store.Delete(cmd.Context(), c, args[1]); err != nil {
				return notFound(c, args[1], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "DELETED %s %s\n", c, args[1])
			return nil
		},
	}
}
