package commands

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/meridianerp/policyflow/internal/cli"
	"github.com/meridianerp/policyflow/internal/models"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	auditResult string
	auditUser   string
	auditRuleID string
	auditAction string
	auditLimit  int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the audit trail",
	Long: `List audit entries, newest first. Every transition attempt that
reached a decision appears exactly once.

Examples:
  policyctl audit
  policyctl audit --result denied
  policyctl audit --user alice --limit 50`,
	Run: func(cmd *cobra.Command, args []string) {
		filters := url.Values{}
		if auditResult != "" {
			filters.Set("result", auditResult)
		}
		if auditUser != "" {
			filters.Set("user", auditUser)
		}
		if auditRuleID != "" {
			filters.Set("rule_id", auditRuleID)
		}
		if auditAction != "" {
			filters.Set("action", auditAction)
		}
		filters.Set("limit", strconv.Itoa(auditLimit))

		client := cli.NewClient(viper.GetString("api.url"), viper.GetString("api.token"))

		result, err := client.GetAuditEntries(filters)
		if err != nil {
			fmt.Printf("❌ Failed to get audit entries: %v\n", err)
			os.Exit(1)
		}

		if outputJSON {
			data, _ := json.MarshalIndent(result, "", "  ")
			fmt.Println(string(data))
			return
		}

		printAuditEntries(result)
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().StringVar(&auditResult, "result", "", "Filter by result (executed, denied, requested-approval)")
	auditCmd.Flags().StringVar(&auditUser, "user", "", "Filter by requesting user")
	auditCmd.Flags().StringVar(&auditRuleID, "rule-id", "", "Filter by matched rule ID")
	auditCmd.Flags().StringVar(&auditAction, "action", "", "Filter by action")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 20, "Maximum entries to show")
}

func printAuditEntries(result *cli.AuditListResponse) {
	if len(result.Entries) == 0 {
		fmt.Println("📭 No audit entries match")
		return
	}

	fmt.Printf("\n📋 %d of %d audit entries:\n\n", len(result.Entries), result.Total)
	for _, e := range result.Entries {
		marker := "✅"
		switch e.Result {
		case models.AuditDenied:
			marker = "❌"
		case models.AuditRequestedApproval:
			marker = "⏸ "
		}

		line := fmt.Sprintf("%s %s  %s by %s", marker, e.Timestamp.Format("2006-01-02 15:04:05"), e.Action, e.User)
		if e.RuleID != "" {
			line += fmt.Sprintf(" (rule %s)", e.RuleID)
		}
		if e.Reason != nil {
			line += fmt.Sprintf(": %s", *e.Reason)
		}
		fmt.Println(line)
	}
}
