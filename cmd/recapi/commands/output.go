package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/recapi/internal/constants"
	"github.com/fivetwenty-io/recapi/pkg/recapi"
)

// render writes value in the configured output format. table fills the
// table used for the default format.
func render(w io.Writer, value interface{}, table func(*tablewriter.Table)) error {
	output := viper.GetString("output")

	switch output {
	case constants.FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", strings.Repeat(" ", constants.JSONIndentSize))

		return encoder.Encode(value)
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(constants.JSONIndentSize)

		err := encoder.Encode(value)
		if err != nil {
			return err
		}

		return encoder.Close()
	case constants.FormatTable, "":
		t := tablewriter.NewWriter(w)
		table(t)

		err := t.Render()
		if err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	default:
		return fmt.Errorf("%w: %s", constants.ErrUnsupportedOutput, output)
	}
}

// printPageSummary follows a table listing with its page position.
func printPageSummary(cmd *cobra.Command, pagination recapi.Pagination) {
	output := viper.GetString("output")
	if output != constants.FormatTable && output != "" {
		return
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Page %d of %d (%d total)\n",
		pagination.Page, pagination.Pages, pagination.Total)
}

// TruncateString truncates a string to a specified length with ellipsis.
func TruncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}

	return s[:maxLength-3] + "..."
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return constants.NotAvailable
	}

	return t.Format("2006-01-02 15:04:05")
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return constants.NotAvailable
	}

	return formatTime(*t)
}

func formatMap(m map[string]string) string {
	if len(m) == 0 {
		return constants.NotAvailable
	}

	pairs := make([]string, 0, len(m))
	for _, k := range sortedKeys(m) {
		pairs = append(pairs, k+"="+m[k])
	}

	return strings.Join(pairs, ", ")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
