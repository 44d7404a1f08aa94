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

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Show the active rule set",
	Long: `Show the rule set the server is currently evaluating, in insertion
order. The first matching rule wins.

Examples:
  policyctl rules
  policyctl rules --json`,
	Run: func(cmd *cobra.Command, args []string) {
		client := cli.NewClient(viper.GetString("api.url"), viper.GetString("api.token"))

		result, err := client.GetRules()
		if err != nil {
			fmt.Printf("❌ Failed to get rules: %v\n", err)
			os.Exit(1)
		}

		if outputJSON {
			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				fmt.Printf("❌ Error encoding JSON: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(data))
			return
		}

		printRuleList(result.Rules, result.Version)
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}

func printRuleList(rules []models.Rule, version int64) {
	if len(rules) == 0 {
		fmt.Println("📭 No rules loaded; every decision is a default allow")
		fmt.Println("\n💡 Load a rule set:")
		fmt.Println("  policyctl load rules.json")
		return
	}

	fmt.Printf("\n📋 Active rule set version %d with %d rule(s):\n\n", version, len(rules))
	for i, rule := range rules {
		gate := "allow"
		if rule.Approval != nil && rule.Approval.Required {
			gate = fmt.Sprintf("approval by %v", rule.Approval.Roles)
			if rule.Approval.BypassIfSeverity != nil {
				gate += fmt.Sprintf(", bypass at %s", *rule.Approval.BypassIfSeverity)
			}
		}
		window := "always"
		if rule.Window != nil {
			window = fmt.Sprintf("days %v %s-%s", rule.Window.Days, rule.Window.Start, rule.Window.End)
		}
		fmt.Printf("  %d. %s: %s/%v -> %s (%s, window: %s)\n",
			i+1, rule.ID, rule.When.KPIID, rule.When.Severity, rule.Action, gate, window)
	}
}
