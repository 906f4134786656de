package cmd

import (
	"errors"
	"fmt"

	"github.com/JonMunkholm/reportload/internal/admin"
	"github.com/spf13/cobra"
)

type resetOptions struct {
	typeKeys []string
	all      bool
	yes      bool
}

func newResetCmd(a *app) *cobra.Command {
	opts := &resetOptions{}

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Empty the tables of report or master types",
		Long: `Reset truncates the database tables behind the given types, or behind every
registered type with --all. Nothing is truncated unless --yes is given.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.validate()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runReset(cmd, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.typeKeys, "type", "t", nil, "type keys to reset; repeatable or comma separated")
	cmd.Flags().BoolVar(&opts.all, "all", false, "reset every registered type")
	cmd.Flags().BoolVar(&opts.yes, "yes", false, "confirm the destructive reset")
	return cmd
}

func (o *resetOptions) validate() error {
	switch {
	case o.all && len(o.typeKeys) > 0:
		return errors.New("--all and --type are mutually exclusive")
	case !o.all && len(o.typeKeys) == 0:
		return errors.New("give --type or --all")
	case !o.yes:
		return errors.New("refusing to reset without --yes")
	}
	return nil
}

func (a *app) runReset(cmd *cobra.Command, opts *resetOptions) error {
	ctx := cmd.Context()

	db, closeFn, err := a.openPostgres(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	r := &admin.Resetter{Store: db, Logger: a.logger}
	var tables []string
	if opts.all {
		tables, err = r.ResetAll(ctx)
	} else {
		tables, err = r.Reset(ctx, opts.typeKeys)
	}
	if err != nil {
		return err
	}

	for _, t := range tables {
		fmt.Fprintln(cmd.OutOrStdout(), t)
	}
	return nil
}
