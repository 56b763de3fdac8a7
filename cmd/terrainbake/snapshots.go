package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"sdfterrain/internal/storage"

	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
)

func snapshotsAction(c *cli.Context) (err error) {
	store, err := storage.OpenEditStore(c.String(flagDB))
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, store.Close()) }()

	infos, err := store.List(c.Context)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCREATED\tROOT\tNODES\tBYTES")
	for _, s := range infos {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%d\n", s.ID, s.Name, s.CreatedAt.Format(time.RFC3339), s.RootSize, s.Nodes, s.Bytes)
	}
	return w.Flush()
}
