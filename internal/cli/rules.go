package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"cookiewarden/internal/rules"
)

func NewRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect blocking rules",
	}
	cmd.AddCommand(newRulesCompileCmd())
	return cmd
}

func newRulesCompileCmd() *cobra.Command {
	var outPath, listPath string

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile the tracker list into declarativeNetRequest rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("rules compile: %w", err)
				}
				defer f.Close()
				out = f
			}
			return compileRules(out, listPath)
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write rules to this file instead of stdout")
	cmd.Flags().StringVarP(&listPath, "list", "l", "", "extra tracker list (hosts or adblock format)")

	return cmd
}

func compileRules(w io.Writer, listPath string) error {
	trackers := rules.NewTrackerList()
	if listPath != "" {
		if _, err := trackers.LoadFile(listPath); err != nil {
			return err
		}
	}

	compiled := rules.NewCompiler().CompileRuleSet(trackers.Domains())

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(compiled); err != nil {
		return fmt.Errorf("rules compile: encode: %w", err)
	}
	return nil
}
