package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"
)

type exportOptions struct {
	Dir     string
	Inspect bool
}

func newExportCmd(root *rootOptions) *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export <dept> <month>",
		Short: "Download the T-13 workbook of a department month",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dept, err := strconv.Atoi(args[0])
			if err != nil {
				return errors.Wrap(err, "dept")
			}
			cfg, s, _, err := newSession(root)
			if err != nil {
				return err
			}
			if err := s.Open(cmd.Context(), dept, args[1]); err != nil {
				return err
			}
			dir := opts.Dir
			if dir == "" {
				dir = cfg.ExportDir
			}
			path, err := s.SaveExport(cmd.Context(), dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %s\n", path)
			if opts.Inspect {
				return inspect(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "dir", "", "target directory (overrides EXPORT_DIR)")
	cmd.Flags().BoolVar(&opts.Inspect, "inspect", false, "print the sheets and rows of the downloaded workbook")
	return cmd
}

// inspect prints each sheet of a workbook as tab separated rows
func inspect(w io.Writer, path string) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return errors.Wrapf(err, "read sheet %s", sheet)
		}
		fmt.Fprintf(w, "sheet %q: %d rows\n", sheet, len(rows))
		for _, row := range rows {
			for i, cell := range row {
				if i > 0 {
					fmt.Fprint(w, "\t")
				}
				fmt.Fprint(w, cell)
			}
			fmt.Fprintln(w)
		}
	}
	return nil
}
