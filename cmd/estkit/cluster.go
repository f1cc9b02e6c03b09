package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/estkit/clustering"
	"github.com/YuminosukeSato/estkit/pkg/errors"
)

func (a *app) newClusterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Cluster CSV rows with KMeans and label them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := a.cfg.Cluster
			if a.cfg.Data == "" {
				return errors.NewValidationError("data", "a CSV file is required (--data or config)", nil)
			}
			opts := []clustering.Option{
				clustering.WithNClusters(c.NClusters),
				clustering.WithMaxIterations(c.MaxIterations),
				clustering.WithRandomState(a.cfg.Seed),
			}
			if c.NInit > 0 {
				opts = append(opts, clustering.WithNInit(c.NInit))
			}
			kc, err := clustering.QuickLoad(a.cfg.Data, c.Labels, opts...)
			if err != nil {
				return err
			}
			if err := kc.Cluster(); err != nil {
				return err
			}
			labelled, err := kc.Label(kc.Data())
			if err != nil {
				return err
			}
			ids, err := labelled.Column(clustering.ClusterIDColumn)
			if err != nil {
				return err
			}
			labels := make([]int, len(ids))
			for i, v := range ids {
				labels[i] = int(v)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d clusters over %v, inertia %s\n", kc.NClusters, kc.Labels(), formatFloat(kc.Model().Inertia()))
			renderCounts(out, labels)

			if c.Output == "" {
				return nil
			}
			f, err := os.Create(c.Output)
			if err != nil {
				return errors.Wrapf(err, "create %s", c.Output)
			}
			if err := labelled.WriteCSV(f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	fs := cmd.Flags()
	fs.String("data", "", "CSV file with a header row")
	fs.StringSlice("labels", nil, "Columns to cluster on (default: all)")
	fs.Int("n-clusters", 4, "Number of clusters")
	fs.Int("max-iterations", 50, "Iterations per KMeans run")
	fs.Int("n-init", 0, "KMeans restarts; 0 picks automatically")
	fs.Int64("seed", 1, "Random seed")
	fs.String("output", "", "Write the data with a cluster_id column to this CSV file")
	return cmd
}
