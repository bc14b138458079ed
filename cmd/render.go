package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/TFMV/topicweb/render"
	"github.com/spf13/cobra"
)

func renderCmd() *cobra.Command {
	var (
		format     string
		output     string
		threshold  float64
		iterations int
		selected   string
		noLabels   bool
		noLegend   bool
		timestamp  bool
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Settle the layout and write it as " + strings.Join(render.Formats(), ", "),
		Example: "  topicweb render -d data/keyword_network.json -f svg -o graph.svg\n" +
			"  topicweb render -f ascii --threshold 20 --select phage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if !cmd.Flags().Changed("threshold") {
				threshold = cfg.Filter.MinEdgeWeight
			}

			ds, err := loadDataset(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			view, err := settle(ds, cfg, threshold, iterations, selected, logger)
			if err != nil {
				return err
			}

			opts := render.NewDefaultOptions(format)
			opts.Width = cfg.Physics.Width
			opts.Height = cfg.Physics.Height
			opts.ShowLabels = !noLabels
			opts.ShowLegend = !noLegend
			opts.Timestamp = timestamp

			out, err := render.View(view, opts)
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err = os.Stdout.Write(out)
				return err
			}
			if err := os.WriteFile(output, out, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}

			state := Good.Sprint("settled")
			if !view.Stable {
				state = Warn.Sprintf("alpha %.3f", view.Alpha)
			}
			frame := render.BuildFrame(view)
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s %s\n", Brand.Sprint(output), frame.Summary, Subtle.Sprint("("+state+")"))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&format, "format", "f", "svg", "Output format: "+strings.Join(render.Formats(), ", "))
	f.StringVarP(&output, "output", "o", "", "Output file, stdout when empty")
	f.Float64Var(&threshold, "threshold", 0, "Minimum edge weight, defaults to the configured value")
	f.IntVar(&iterations, "iterations", 300, "Maximum simulation steps")
	f.StringVar(&selected, "select", "", "Highlight the neighbourhood of this topic")
	f.BoolVar(&noLabels, "no-labels", false, "Omit topic labels")
	f.BoolVar(&noLegend, "no-legend", false, "Omit the category legend")
	f.BoolVar(&timestamp, "timestamp", false, "Stamp the output with the render time")
	return cmd
}
