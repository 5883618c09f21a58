package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edvora/minerva/pkg/cli"
	"github.com/edvora/minerva/pkg/mastery"
)

var masteryCmd = &cobra.Command{
	Use:   "mastery <user-id> <lesson-id>",
	Short: "Mastery report for a user and lesson",
	Long: `Mastery report for a user and lesson.

Fetches the evidence-weighted score, tier and per-type evidence counts
from a running server.

Examples:
  minerva mastery alice multiplication-01
  minerva mastery alice multiplication-01 -o json
  minerva mastery alice multiplication-01 -q .tier`,
	Args: cobra.ExactArgs(2),
	RunE: runMastery,
}

var (
	masteryServer string
	masteryFormat string
	masteryFile   string
	masteryQuery  string
)

func init() {
	masteryCmd.Flags().StringVar(&masteryServer, "server", "http://localhost:8080", "gateway base URL")
	masteryCmd.Flags().StringVarP(&masteryFormat, "output", "o", "yaml", "output format (yaml, json, raw)")
	masteryCmd.Flags().StringVar(&masteryFile, "file", "", "write output to file (default: stdout)")
	masteryCmd.Flags().StringVarP(&masteryQuery, "query", "q", "", "jq filter applied to the report")

	rootCmd.AddCommand(masteryCmd)
}

func runMastery(cmd *cobra.Command, args []string) error {
	base := strings.TrimRight(masteryServer, "/")
	url := fmt.Sprintf("%s/v1/mastery/%s/%s", base, args[0], args[1])

	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("fetch report: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch report: %s", readAPIError(resp))
	}

	var report mastery.Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return fmt.Errorf("decode report: %w", err)
	}

	return cli.Output(report, cli.OutputOptions{
		Format: cli.OutputFormat(masteryFormat),
		File:   masteryFile,
		Query:  masteryQuery,
	})
}
