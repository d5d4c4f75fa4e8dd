package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/ayusman/beltcount/internal/store"
)

func openStore(c *cli.Context) (*store.Store, error) {
	path := c.String(flagDB)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("run history %s: %w", path, err)
	}
	return store.New(path)
}

func runID(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", errors.New("expected exactly one run id")
	}
	return c.Args().First(), nil
}

func listRunsAction(c *cli.Context) error {
	st, err := openStore(c)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.Runs().List(c.Int(flagLimit))
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	return writeRuns(os.Stdout, runs)
}

func writeRuns(out io.Writer, runs []*store.Run) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSOURCE\tPOLICY\tFRAMES\tCOUNT\tSTARTED\tSTATE")
	for _, r := range runs {
		state := "running"
		if r.Finished() {
			state = "finished"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Source, r.Policy,
			humanize.Comma(int64(r.Frames)), humanize.Comma(int64(r.Count)),
			humanize.Time(r.StartedAt), state)
	}
	return w.Flush()
}

func showRunAction(c *cli.Context) error {
	id, err := runID(c)
	if err != nil {
		return err
	}

	st, err := openStore(c)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.Runs().GetByID(id)
	if err != nil {
		return err
	}
	crossings, err := st.Crossings().ListByRun(id)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s\n", run.ID)
	fmt.Printf("  Source:  %s\n", run.Source)
	fmt.Printf("  Policy:  %s\n", run.Policy)
	fmt.Printf("  Started: %s (%s)\n", run.StartedAt.Format("2006-01-02 15:04:05"), humanize.Time(run.StartedAt))
	if run.FinishedAt != nil {
		fmt.Printf("  Took:    %s\n", humanize.RelTime(run.StartedAt, *run.FinishedAt, "", ""))
	}
	fmt.Printf("  Frames:  %s\n", humanize.Comma(int64(run.Frames)))
	fmt.Printf("  Count:   %s\n", humanize.Comma(int64(run.Count)))
	if len(run.Settings) > 0 {
		fmt.Printf("  Settings: %s\n", run.Settings)
	}

	if len(crossings) == 0 {
		return nil
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FRAME\tCOUNT\tCENTROID\tAREA\tTIME")
	for _, e := range crossings {
		fmt.Fprintf(w, "%d\t%d\t(%d,%d)\t%.0f\t%.2fs\n", e.FrameIndex, e.Count, e.CX, e.CY, e.Area, e.MediaTime)
	}
	return w.Flush()
}

func deleteRunAction(c *cli.Context) error {
	id, err := runID(c)
	if err != nil {
		return err
	}

	st, err := openStore(c)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Runs().Delete(id); err != nil {
		return err
	}
	fmt.Printf("Deleted run %s\n", id)
	return nil
}
