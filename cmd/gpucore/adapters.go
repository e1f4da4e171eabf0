package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/cockroachdb/errors"
	"github.com/framegpu/gpucore/config"
	"github.com/framegpu/gpucore/driver"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"
)

func newAdaptersCommand(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "adapters",
		Short: "List the adapters the backend enumerates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := root.load()
			if err != nil {
				return err
			}
			return listAdapters(cmd.OutOrStdout(), cfg, logger)
		},
	}
}

func listAdapters(out io.Writer, cfg config.Config, logger *slog.Logger) error {
	factory, err := newFactory(cfg, logger)
	if err != nil {
		return err
	}
	defer factory.Release()

	table := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(table, "INDEX\tDESCRIPTION\tVENDOR\tDEVICE\tMEMORY (MiB)\tSOFTWARE")

	for index := 0; ; index++ {
		adapter, err := factory.EnumAdapter(index)
		if errors.Is(err, driver.ErrNotFound) {
			break
		} else if err != nil {
			return err
		}

		desc, err := adapter.Desc()
		adapter.Release()
		if err != nil {
			return errors.Wrapf(err, "adapter %d", index)
		}

		fmt.Fprintf(table, "%d\t%s\t%#04x\t%#04x\t%d\t%t\n",
			index, desc.Description, desc.VendorID, desc.DeviceID, desc.DedicatedVideoMemory>>20, desc.Software)
	}
	return table.Flush()
}
