package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"
)

func newTagCmd(a *app) *cobra.Command {
	var force bool

	rm := &cobra.Command{
		Use:     "rm TAG...",
		Aliases: []string{"remove"},
		Short:   "Remove tags",
		Long:    "Remove tags. A tag still carried by hosts is only removed with --force.",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, b Backend) error {
				return eachArg(ctx, args, func(ctx context.Context, name string) error {
					return b.RemoveTag(ctx, name, force)
				})
			})
		},
	}
	rm.Flags().BoolVarP(&force, "force", "f", false, "Untag every host first")

	cmd := &cobra.Command{
		Use:     "tag",
		Aliases: []string{"tags"},
		Short:   "Manage tags",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add TAG...",
			Short: "Add tags",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.run(cmd, func(ctx context.Context, b Backend) error {
					return eachArg(ctx, args, b.AddTag)
				})
			},
		},
		rm,
		&cobra.Command{
			Use:   "rename OLD NEW",
			Short: "Rename a tag",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.run(cmd, func(ctx context.Context, b Backend) error {
					return b.RenameTag(ctx, args[0], args[1])
				})
			},
		},
		&cobra.Command{
			Use:   "get TAG",
			Short: "Show the hosts carrying a tag",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.run(cmd, func(ctx context.Context, b Backend) error {
					tag, err := b.GetTag(ctx, args[0])
					if err != nil {
						return err
					}
					return a.print(cmd, tag, func(w io.Writer) error {
						return FormatTagDetail(w, tag)
					})
				})
			},
		},
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List tags",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.run(cmd, func(ctx context.Context, b Backend) error {
					tags, err := b.ListTags(ctx)
					if err != nil {
						return err
					}
					return a.print(cmd, tags, func(w io.Writer) error {
						return FormatTagsTable(w, tags)
					})
				})
			},
		},
	)
	return cmd
}

func newAttrCmd(a *app) *cobra.Command {
	var force bool

	rm := &cobra.Command{
		Use:     "rm ATTRIBUTE...",
		Aliases: []string{"remove"},
		Short:   "Remove attributes",
		Long:    "Remove attributes. An attribute still set on hosts is only removed with --force.",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, b Backend) error {
				return eachArg(ctx, args, func(ctx context.Context, name string) error {
					return b.RemoveAttribute(ctx, name, force)
				})
			})
		},
	}
	rm.Flags().BoolVarP(&force, "force", "f", false, "Clear the value on every host first")

	cmd := &cobra.Command{
		Use:     "attr",
		Aliases: []string{"attrs", "attribute"},
		Short:   "Manage attributes",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add ATTRIBUTE...",
			Short: "Add attributes",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.run(cmd, func(ctx context.Context, b Backend) error {
					return eachArg(ctx, args, b.AddAttribute)
				})
			},
		},
		rm,
		&cobra.Command{
			Use:   "rename OLD NEW",
			Short: "Rename an attribute",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.run(cmd, func(ctx context.Context, b Backend) error {
					return b.RenameAttribute(ctx, args[0], args[1])
				})
			},
		},
		&cobra.Command{
			Use:   "get ATTRIBUTE",
			Short: "Show the value of an attribute on every host",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.run(cmd, func(ctx context.Context, b Backend) error {
					attr, err := b.GetAttribute(ctx, args[0])
					if err != nil {
						return err
					}
					return a.print(cmd, attr, func(w io.Writer) error {
						return FormatAttributeDetail(w, attr)
					})
				})
			},
		},
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List attributes",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.run(cmd, func(ctx context.Context, b Backend) error {
					attrs, err := b.ListAttributes(ctx)
					if err != nil {
						return err
					}
					return a.print(cmd, attrs, func(w io.Writer) error {
						return FormatAttributesTable(w, attrs)
					})
				})
			},
		},
	)
	return cmd
}
