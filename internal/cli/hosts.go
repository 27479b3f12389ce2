package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"
)

func newHostCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "host",
		Aliases: []string{"hosts"},
		Short:   "Manage hosts",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add HOSTNAME...",
			Short: "Add hosts",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.run(cmd, func(ctx context.Context, b Backend) error {
					return eachArg(ctx, args, b.AddHost)
				})
			},
		},
		&cobra.Command{
			Use:     "rm HOSTNAME...",
			Aliases: []string{"remove"},
			Short:   "Remove hosts with their tags and attribute values",
			Args:    cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.run(cmd, func(ctx context.Context, b Backend) error {
					return eachArg(ctx, args, b.RemoveHost)
				})
			},
		},
		&cobra.Command{
			Use:   "rename OLD NEW",
			Short: "Rename a host",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.run(cmd, func(ctx context.Context, b Backend) error {
					return b.RenameHost(ctx, args[0], args[1])
				})
			},
		},
		&cobra.Command{
			Use:   "get HOSTNAME",
			Short: "Show a host with its tags and attributes",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.run(cmd, func(ctx context.Context, b Backend) error {
					host, err := b.GetHost(ctx, args[0])
					if err != nil {
						return err
					}
					return a.print(cmd, host, func(w io.Writer) error {
						return FormatHostDetail(w, host)
					})
				})
			},
		},
		newHostListCmd(a),
		&cobra.Command{
			Use:   "tag HOSTNAME TAG...",
			Short: "Tag a host",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.run(cmd, func(ctx context.Context, b Backend) error {
					return eachArg(ctx, args[1:], func(ctx context.Context, tag string) error {
						return b.SetTag(ctx, args[0], tag)
					})
				})
			},
		},
		&cobra.Command{
			Use:   "untag HOSTNAME TAG...",
			Short: "Remove tags from a host",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.run(cmd, func(ctx context.Context, b Backend) error {
					return eachArg(ctx, args[1:], func(ctx context.Context, tag string) error {
						return b.UnsetTag(ctx, args[0], tag)
					})
				})
			},
		},
		&cobra.Command{
			Use:   "set HOSTNAME ATTRIBUTE VALUE",
			Short: "Set an attribute value on a host",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.run(cmd, func(ctx context.Context, b Backend) error {
					return b.SetAttribute(ctx, args[0], args[1], args[2])
				})
			},
		},
		&cobra.Command{
			Use:   "unset HOSTNAME ATTRIBUTE",
			Short: "Clear an attribute value on a host",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.run(cmd, func(ctx context.Context, b Backend) error {
					return b.UnsetAttribute(ctx, args[0], args[1])
				})
			},
		},
	)
	return cmd
}

func newHostListCmd(a *app) *cobra.Command {
	var tags, attrs []string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List hosts, optionally filtered by tags and attributes",
		Example: `  tattr host list --tag web --tag prod
  tattr host list --attr os=linux --attr rack`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, b Backend) error {
				hosts, err := b.ListHosts(ctx, tags, attrs)
				if err != nil {
					return err
				}
				return a.print(cmd, hosts, func(w io.Writer) error {
					return FormatHostsTable(w, hosts)
				})
			})
		},
	}

	cmd.Flags().StringArrayVarP(&tags, "tag", "t", nil, "Only hosts carrying TAG (repeatable)")
	cmd.Flags().StringArrayVarP(&attrs, "attr", "a", nil, "Only hosts with ATTR or ATTR=VALUE (repeatable)")
	return cmd
}
