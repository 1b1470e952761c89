package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/arnavshah/timesheet-grid-go/pkg/grid"
	"github.com/arnavshah/timesheet-grid-go/pkg/loader"
	"github.com/arnavshah/timesheet-grid-go/pkg/models"
	"github.com/arnavshah/timesheet-grid-go/pkg/session"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const scriptHelp = `Commands, one per line (# starts a comment):
  open <dept> <month>     load a department month
  reload                  load the current view again
  click <emp> <day>       press and release on a cell
  ctrl <emp> <day>        ctrl/cmd-click a cell
  down <emp> <day>        press on a cell
  enter <emp> <day>       move the pointer onto a cell
  up                      release the pointer
  drag <emp> <from> <to>  press, sweep and release along a row
  right <emp> <day>       secondary-button press (ignored)
  outside                 press outside the grid
  pick | close            open or dismiss the code picker
  apply <code>|clear      assign a code (by symbol, or #id) to the targets
  undo                    undo the last apply and reload
  save                    send pending changes
  export [dir]            download the T-13 workbook
  show | totals <emp> | pending | state`

type scriptOptions struct {
	KeepGoing bool
	ExportDir string
}

func newScriptCmd(root *rootOptions) *cobra.Command {
	var opts scriptOptions

	cmd := &cobra.Command{
		Use:     "script [file]",
		Aliases: []string{"run"},
		Short:   "Drive an editing session from a command file or stdin",
		Long:    scriptHelp,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, s, _, err := newSession(root)
			if err != nil {
				return err
			}
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			dir := opts.ExportDir
			if dir == "" {
				dir = cfg.ExportDir
			}
			r := &runner{s: s, out: cmd.OutOrStdout(), dir: dir, keepGoing: opts.KeepGoing}
			return r.run(cmd.Context(), in)
		},
	}

	cmd.Flags().BoolVar(&opts.KeepGoing, "keep-going", false, "report failed commands and continue")
	cmd.Flags().StringVar(&opts.ExportDir, "export-dir", "", "directory for exports (overrides EXPORT_DIR)")
	return cmd
}

// runner executes script lines against a session
type runner struct {
	s         *session.Session
	out       io.Writer
	dir       string
	keepGoing bool
}

func (r *runner) run(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if err := r.exec(ctx, strings.Fields(text)); err != nil {
			if !r.keepGoing {
				return errors.Wrapf(err, "line %d: %s", line, text)
			}
			fmt.Fprintf(r.out, "error: line %d: %v\n", line, err)
		}
	}
	return sc.Err()
}

func (r *runner) exec(ctx context.Context, args []string) error {
	switch args[0] {
	case "open":
		if len(args) != 3 {
			return errors.New("usage: open <dept> <month>")
		}
		dept, err := strconv.Atoi(args[1])
		if err != nil {
			return errors.Wrap(err, "dept")
		}
		if err := r.s.Open(ctx, dept, args[2]); err != nil {
			return err
		}
		r.s.View(func(e *grid.Editor, c *loader.Catalog) {
			fmt.Fprintf(r.out, "loaded dept %d %s: %d employees, %d days\n", c.DeptID, c.Month, len(c.Employees), c.DaysInMonth)
		})
		return nil

	case "reload":
		return r.s.Reload(ctx)

	case "click", "ctrl", "down", "enter", "right":
		c, err := cellArgs(args, 1)
		if err != nil {
			return err
		}
		return r.s.Edit(func(e *grid.Editor) error {
			switch args[0] {
			case "click":
				e.MouseDown(c, grid.ButtonPrimary, false)
				e.MouseUp()
			case "ctrl":
				e.MouseDown(c, grid.ButtonPrimary, true)
				e.MouseUp()
			case "down":
				e.MouseDown(c, grid.ButtonPrimary, false)
			case "enter":
				e.MouseEnter(c)
			case "right":
				e.MouseDown(c, grid.ButtonSecondary, false)
			}
			return nil
		})

	case "drag":
		if len(args) != 4 {
			return errors.New("usage: drag <emp> <from> <to>")
		}
		n, err := ints(args[1:])
		if err != nil {
			return err
		}
		return r.s.Edit(func(e *grid.Editor) error {
			e.MouseDown(grid.Cell{EmployeeID: n[0], Day: n[1]}, grid.ButtonPrimary, false)
			e.MouseEnter(grid.Cell{EmployeeID: n[0], Day: n[2]})
			e.MouseUp()
			return nil
		})

	case "up":
		return r.s.Edit(func(e *grid.Editor) error { e.MouseUp(); return nil })

	case "outside":
		return r.s.Edit(func(e *grid.Editor) error { e.OutsideMouseDown(); return nil })

	case "pick":
		return r.s.Edit(func(e *grid.Editor) error {
			if !e.OpenPicker() {
				return errors.New("picker needs an active cell")
			}
			return nil
		})

	case "close":
		return r.s.Edit(func(e *grid.Editor) error { e.ClosePicker(); return nil })

	case "apply":
		if len(args) != 2 {
			return errors.New("usage: apply <code>|clear")
		}
		return r.s.Edit(func(e *grid.Editor) error {
			id, err := resolveCode(e.Model(), args[1])
			if err != nil {
				return err
			}
			if e.State() != grid.Editing && !e.OpenPicker() {
				return grid.ErrNoTarget
			}
			n, err := e.Apply(id)
			if err != nil {
				return err
			}
			fmt.Fprintf(r.out, "applied %s to %d cells, %d pending\n", args[1], n, e.Pending())
			return nil
		})

	case "undo":
		undone, err := r.s.Undo(ctx)
		if !undone && err == nil {
			fmt.Fprintln(r.out, "nothing to undo")
		}
		return err

	case "save":
		n, err := r.s.Save(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "saved %d changes\n", n)
		return nil

	case "export":
		dir := r.dir
		if len(args) > 1 {
			dir = args[1]
		}
		path, err := r.s.SaveExport(ctx, dir)
		if err != nil {
			var ee *session.ExportError
			if errors.As(err, &ee) {
				return errors.New(ee.UserMessage())
			}
			return err
		}
		fmt.Fprintf(r.out, "exported %s\n", path)
		return nil

	case "totals":
		if len(args) != 2 {
			return errors.New("usage: totals <emp>")
		}
		emp, err := strconv.Atoi(args[1])
		if err != nil {
			return errors.Wrap(err, "emp")
		}
		r.s.View(func(e *grid.Editor, _ *loader.Catalog) {
			t := e.Totals(emp)
			fmt.Fprintf(r.out, "employee %d: std %g night %g total %g\n", emp, t.Standard, t.Night, t.Total)
		})
		return nil

	case "pending":
		r.s.View(func(e *grid.Editor, _ *loader.Catalog) {
			for _, p := range e.Changes() {
				code := "clear"
				if p.WorkCodeID != nil {
					code = "#" + strconv.Itoa(*p.WorkCodeID)
				}
				fmt.Fprintf(r.out, "%d %s %s\n", p.EmployeeID, p.Date, code)
			}
			fmt.Fprintf(r.out, "%d pending, %d undo steps\n", e.Pending(), e.UndoLen())
		})
		return nil

	case "state":
		r.s.View(func(e *grid.Editor, _ *loader.Catalog) {
			fmt.Fprintf(r.out, "%s, %d selected\n", e.State(), len(e.Selected()))
		})
		return nil

	case "show":
		var err error
		r.s.View(func(e *grid.Editor, c *loader.Catalog) {
			if c == nil {
				err = session.ErrNoView
				return
			}
			err = render(r.out, e, c)
		})
		return err

	case "help":
		fmt.Fprintln(r.out, scriptHelp)
		return nil
	}
	return errors.Errorf("unknown command %q", args[0])
}

// render prints the grid section by section
func render(w io.Writer, e *grid.Editor, c *loader.Catalog) error {
	m := e.Model()
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	header := []string{"id", "name"}
	for d := 1; d <= m.DaysInMonth(); d++ {
		header = append(header, strconv.Itoa(d))
	}
	header = append(header, "std", "night", "total")

	for _, sec := range c.Sections() {
		fmt.Fprintf(tw, "== %s\n", sec.Title)
		fmt.Fprintln(tw, strings.Join(header, "\t"))
		for _, emp := range sec.Employees {
			row := []string{strconv.Itoa(emp.ID), emp.FullName}
			for d := 1; d <= m.DaysInMonth(); d++ {
				row = append(row, cellText(e, grid.Cell{EmployeeID: emp.ID, Day: d}))
			}
			t := e.Totals(emp.ID)
			row = append(row, fmt.Sprintf("%g", t.Standard), fmt.Sprintf("%g", t.Night), fmt.Sprintf("%g", t.Total))
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
	}
	return tw.Flush()
}

// cellText marks selected cells with brackets and unsaved cells with a star
func cellText(e *grid.Editor, c grid.Cell) string {
	text := "."
	if wc, ok := e.Model().Code(c.EmployeeID, c.Day); ok {
		text = wc.Code
	}
	if _, ok := e.Change(c); ok {
		text += "*"
	}
	if e.IsSelected(c) {
		text = "[" + text + "]"
	}
	return text
}

// resolveCode maps a code symbol, #id or "clear" to a work code id
func resolveCode(m *grid.Model, arg string) (*int, error) {
	if arg == "clear" || arg == "-" {
		return nil, nil
	}
	if strings.HasPrefix(arg, "#") {
		id, err := strconv.Atoi(arg[1:])
		if err != nil {
			return nil, errors.Wrap(err, "code id")
		}
		return models.IntPtr(id), nil
	}
	for _, wc := range m.WorkCodes() {
		if wc.Code == arg {
			return models.IntPtr(wc.ID), nil
		}
	}
	return nil, errors.Wrapf(grid.ErrUnknownCode, "%q", arg)
}

func cellArgs(args []string, from int) (grid.Cell, error) {
	if len(args) != from+2 {
		return grid.Cell{}, errors.Errorf("usage: %s <emp> <day>", args[0])
	}
	n, err := ints(args[from:])
	if err != nil {
		return grid.Cell{}, err
	}
	return grid.Cell{EmployeeID: n[0], Day: n[1]}, nil
}

func ints(ss []string) ([]int, error) {
	out := make([]int, len(ss))
	for i, s := range ss {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, errors.Wrapf(err, "argument %d", i+1)
		}
		out[i] = n
	}
	return out, nil
}
