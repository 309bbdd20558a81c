package cli

import (
	"github.com/spf13/cobra"

	"github.com/skarllot/flow-pair/pkg/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect persisted runs",
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run>",
	Short: "Print the message logs of a run, e.g. review-20260102-150405",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		logs, err := e.store.ReadHistory(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return history.WriteReport(cmd.OutOrStdout(), format, logs)
	},
}

func init() {
	historyShowCmd.Flags().String("format", history.FormatYAML, "Output format: yaml or json")
	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}
