package cmd

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/TFMV/topicweb/filter"
	"github.com/TFMV/topicweb/graph"
	"github.com/TFMV/topicweb/models"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func inspectCmd() *cobra.Command {
	var (
		step float64
		top  int
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Summarise a dataset and how the threshold thins it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ds, err := loadDataset(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			if step <= 0 {
				return fmt.Errorf("--step must be positive")
			}

			thresholds := sweep(cfg.Interaction.ThresholdMin, cfg.Interaction.ThresholdMax, step)
			snaps, err := filterAll(ds, cfg.Filter, thresholds)
			if err != nil {
				return err
			}

			current := filter.Apply(ds, cfg.Filter)
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s %s\n\n", Brand.Sprint(cfg.Dataset.Source),
				Subtle.Sprintf("%d topics, %d connections, %d publications", len(ds.Nodes), len(ds.Edges), ds.Stats.TotalPublications))

			printCategories(w, ds, current)
			printSweep(w, snaps, cfg.Filter.MinEdgeWeight)
			printTop(w, current, top)
			return nil
		},
	}

	cmd.Flags().Float64Var(&step, "step", 5, "Threshold sweep step")
	cmd.Flags().IntVar(&top, "top", 10, "Number of most mentioned topics to list")
	return cmd
}

// sweep returns lo, lo+step, ... up to hi, always ending on hi. Each value
// is computed from its index so repeated steps don't accumulate error.
func sweep(lo, hi, step float64) []float64 {
	const eps = 1e-9
	var out []float64
	for i := 0; ; i++ {
		t := lo + float64(i)*step
		if t > hi+eps {
			break
		}
		if math.Abs(t-hi) <= eps {
			t = hi
		}
		out = append(out, t)
	}
	if len(out) == 0 || out[len(out)-1] < hi {
		out = append(out, hi)
	}
	return out
}

// filterAll builds one snapshot per threshold concurrently
func filterAll(ds *models.Dataset, opts filter.Options, thresholds []float64) ([]*graph.Snapshot, error) {
	snaps := make([]*graph.Snapshot, len(thresholds))
	var g errgroup.Group
	g.SetLimit(4)
	for i, t := range thresholds {
		g.Go(func() error {
			snaps[i] = filter.Apply(ds, opts.WithThreshold(t))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snaps, nil
}

func printCategories(w io.Writer, ds *models.Dataset, current *graph.Snapshot) {
	visible := make(map[models.Category]int)
	for _, n := range current.Nodes {
		visible[n.Category]++
	}
	all := ds.CategoryCounts()

	var rows [][]string
	for _, c := range models.AllCategories() {
		if all[c] == 0 {
			continue
		}
		rows = append(rows, []string{c.Label(), c.Color(), strconv.Itoa(all[c]), strconv.Itoa(visible[c])})
	}
	Info.Fprintln(w, "Categories")
	Table(w, []string{"CATEGORY", "COLOUR", "TOPICS", "SHOWN"}, rows)
	fmt.Fprintln(w)
}

func printSweep(w io.Writer, snaps []*graph.Snapshot, active float64) {
	rows := make([][]string, 0, len(snaps))
	for _, s := range snaps {
		mark := ""
		if s.Threshold == active {
			mark = "*"
		}
		weights := "-"
		if lo, hi, ok := s.WeightExtent(); ok {
			weights = fmt.Sprintf("%g..%g", lo, hi)
		}
		rows = append(rows, []string{
			strconv.FormatFloat(s.Threshold, 'g', -1, 64) + mark,
			strconv.Itoa(len(s.Nodes)),
			strconv.Itoa(len(s.Edges)),
			weights,
		})
	}
	Info.Fprintln(w, "Threshold sweep")
	Table(w, []string{"MIN WEIGHT", "TOPICS", "CONNECTIONS", "WEIGHTS"}, rows)
	fmt.Fprintln(w)
}

func printTop(w io.Writer, current *graph.Snapshot, n int) {
	if n <= 0 || len(current.Nodes) == 0 {
		return
	}
	nodes := make([]models.Node, len(current.Nodes))
	copy(nodes, current.Nodes)
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Count > nodes[j].Count })
	if len(nodes) > n {
		nodes = nodes[:n]
	}

	rows := make([][]string, 0, len(nodes))
	for _, node := range nodes {
		rows = append(rows, []string{
			node.Label,
			node.Category.Label(),
			strconv.Itoa(node.Count),
			strconv.Itoa(current.Degree(node.ID)),
		})
	}
	Info.Fprintf(w, "Top topics at %g\n", current.Threshold)
	Table(w, []string{"TOPIC", "CATEGORY", "MENTIONS", "DEGREE"}, rows)
}
