package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/factcheck/internal/report"
	"github.com/ppiankov/factcheck/internal/store"
)

var (
	runsLimit int
	runsMD    bool
)

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect archived runs",
	Long: `Inspect reports saved in the run archive (store.path in the config file,
or FACTCHECK_STORE_PATH).`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openArchive()
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		runs, err := st.List(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs archived yet")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN ID\tCREATED\tVERDICT\tFACTUALITY\tCLAIMS\tINPUT")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%d\t%s\n",
				r.RunID, r.CreatedAt.Local().Format(time.DateTime), r.Verdict, r.Factuality, r.Claims, store.Preview(r.Input, 50))
		}
		return tw.Flush()
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print an archived report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openArchive()
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		rep, err := st.Get(cmd.Context(), args[0])
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no archived run with id %s", args[0])
		}
		if err != nil {
			return err
		}

		if runsMD {
			fmt.Fprint(cmd.OutOrStdout(), report.NewRenderer(false).Markdown(rep))
			return nil
		}
		data, err := report.Marshal(rep)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)

	runsListCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "number of runs to list")
	runsShowCmd.Flags().BoolVar(&runsMD, "md", false, "print Markdown instead of JSON")
}

func openArchive() (*store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Store.Path == "" {
		return nil, errors.New("run archive disabled: set store.path in the config file or FACTCHECK_STORE_PATH")
	}
	return store.Open(cfg.Store.Path)
}
