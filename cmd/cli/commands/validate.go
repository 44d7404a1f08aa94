package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/meridianerp/policyflow/internal/models"
	"github.com/meridianerp/policyflow/internal/services"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [rules-file]",
	Short: "Validate a rule set file",
	Long: `Validate a rule set file locally, without contacting the server.

The validator checks:
  - Required fields (id, kpi_id, severity, action)
  - Enum values for severity and action
  - Window clock format and weekday range
  - Approval gate consistency
  - Duplicate rule IDs

Loading is all-or-nothing: a set with one invalid rule is rejected whole.

Examples:
  policyctl validate rules.json
  policyctl validate rules.json --json`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		filename := args[0]

		rules, err := readRulesFile(filename)
		if err != nil {
			fmt.Printf("❌ Error: %v\n", err)
			os.Exit(1)
		}

		validationErr := services.ValidateRules(rules)

		if outputJSON {
			result := map[string]interface{}{"valid": validationErr == nil, "rules": len(rules)}
			if validationErr != nil {
				result["error"] = validationErr.Error()
			}
			data, _ := json.MarshalIndent(result, "", "  ")
			fmt.Println(string(data))
		} else if validationErr == nil {
			fmt.Printf("\n🔍 Validating rule set: %s\n\n", filename)
			fmt.Printf("✅ Rule set is valid (%d rule(s))\n", len(rules))
			fmt.Println("\nNext step:")
			fmt.Printf("  policyctl load %s\n", filename)
		} else {
			fmt.Printf("\n🔍 Validating rule set: %s\n\n", filename)
			fmt.Printf("❌ Rule set validation failed:\n\n  %v\n", validationErr)
			fmt.Println("\n💡 Tip: Fix the error above and run validate again")
		}

		if validationErr != nil {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func readRulesFile(filename string) ([]models.Rule, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("file '%s' not readable: %w", filename, err)
	}

	// Accept either a bare rule array or a {"rules": [...]} wrapper.
	var req models.LoadRulesRequest
	if err := json.Unmarshal(data, &req); err == nil && len(req.Rules) > 0 {
		return req.Rules, nil
	}

	var rules []models.Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("could not parse rule set: %w", err)
	}
	return rules, nil
}
