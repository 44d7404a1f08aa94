package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/meridianerp/policyflow/internal/cli"
	"github.com/meridianerp/policyflow/internal/models"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	decideKPI      string
	decideSeverity string
	decideDelta    float64
	decideMessage  string
)

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Evaluate an alert against the active rule set",
	Long: `Evaluate an ad-hoc alert and print the decision. The caller's roles
come from the API token, so the same alert can decide differently for
different tokens.

Examples:
  policyctl decide --kpi sales_post --severity warn
  policyctl decide --kpi pricing_margin --severity crit --delta -4.2`,
	Run: func(cmd *cobra.Command, args []string) {
		severity := models.Severity(decideSeverity)
		if !severity.Valid() {
			fmt.Printf("❌ Invalid severity %q (expected ok, warn, or crit)\n", decideSeverity)
			os.Exit(1)
		}

		alert := models.Alert{
			KPIID:    decideKPI,
			Severity: severity,
			Message:  decideMessage,
		}
		if cmd.Flags().Changed("delta") {
			alert.Delta = &decideDelta
		}

		client := cli.NewClient(viper.GetString("api.url"), viper.GetString("api.token"))

		decision, err := client.Decide(alert)
		if err != nil {
			fmt.Printf("❌ Failed to evaluate alert: %v\n", err)
			os.Exit(1)
		}

		if outputJSON {
			data, _ := json.MarshalIndent(decision, "", "  ")
			fmt.Println(string(data))
			return
		}

		switch decision.Type {
		case models.DecisionAllow:
			if decision.MatchedRuleID == "" {
				fmt.Println("✅ allow (no governing rule)")
			} else {
				fmt.Printf("✅ allow (rule %s)\n", decision.MatchedRuleID)
			}
		case models.DecisionRequiresApproval:
			fmt.Printf("⏸  requires-approval (rule %s): %s\n", decision.MatchedRuleID, decision.Reason)
		case models.DecisionDeny:
			fmt.Printf("❌ deny: %s\n", decision.Reason)
		}
	},
}

func init() {
	rootCmd.AddCommand(decideCmd)
	decideCmd.Flags().StringVar(&decideKPI, "kpi", "", "KPI identifier of the alert")
	decideCmd.Flags().StringVar(&decideSeverity, "severity", "warn", "Alert severity (ok, warn, crit)")
	decideCmd.Flags().Float64Var(&decideDelta, "delta", 0, "KPI delta carried by the alert")
	decideCmd.Flags().StringVar(&decideMessage, "message", "", "Human-readable alert message")
	decideCmd.MarkFlagRequired("kpi")
}
