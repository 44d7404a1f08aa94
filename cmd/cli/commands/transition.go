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

var transitionCmd = &cobra.Command{
	Use:   "transition [domain] [number] [action]",
	Short: "Apply a workflow action to a document",
	Long: `Attempt a workflow transition on a document. The outcome is either
executed, requires-approval, denied, or invalid-transition; every outcome
that reaches a decision leaves an audit entry server-side.

Examples:
  policyctl transition sales INV-1001 submit
  policyctl transition purchase PO-2042 post`,
	Args: cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		domain, number := args[0], args[1]
		action := models.DocumentAction(args[2])
		if !action.Valid() {
			fmt.Printf("❌ Invalid action %q (expected submit, approve, reject, or post)\n", args[2])
			os.Exit(1)
		}

		client := cli.NewClient(viper.GetString("api.url"), viper.GetString("api.token"))

		result, err := client.Transition(domain, number, action)
		if err != nil {
			fmt.Printf("❌ Transition failed: %v\n", err)
			os.Exit(1)
		}

		if outputJSON {
			data, _ := json.MarshalIndent(result, "", "  ")
			fmt.Println(string(data))
			return
		}

		switch result.Status {
		case "executed":
			fmt.Printf("✅ %s %s: %s applied, now %s (version %d)\n",
				domain, number, action, result.Document.State, result.Document.Version)
		case "requires-approval":
			fmt.Printf("⏸  %s %s: approval required by one of %v (rule %s)\n",
				domain, number, result.ApproverRoles, result.RuleID)
		case "denied":
			fmt.Printf("❌ %s %s: denied: %s\n", domain, number, result.Reason)
			os.Exit(1)
		case "invalid-transition":
			fmt.Printf("❌ %s %s: %s is not valid from the current state\n", domain, number, action)
			os.Exit(1)
		default:
			fmt.Printf("❓ Unexpected status %q\n", result.Status)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(transitionCmd)
}
