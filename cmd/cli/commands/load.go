package commands

import (
	"fmt"
	"os"

	"github.com/meridianerp/policyflow/internal/cli"
	"github.com/meridianerp/policyflow/internal/services"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var skipValidation bool

var loadCmd = &cobra.Command{
	Use:   "load [rules-file]",
	Short: "Load a rule set onto the server",
	Long: `Atomically replace the active rule set on the server. The set is
validated locally first, then again server-side; in-flight decisions keep
the snapshot they started with.

Examples:
  policyctl load rules.json
  policyctl load rules.json --skip-validation`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		filename := args[0]

		rules, err := readRulesFile(filename)
		if err != nil {
			fmt.Printf("❌ Error: %v\n", err)
			os.Exit(1)
		}

		if !skipValidation {
			if err := services.ValidateRules(rules); err != nil {
				fmt.Printf("❌ Rule set validation failed: %v\n", err)
				fmt.Println("💡 Tip: Run 'policyctl validate' for details")
				os.Exit(1)
			}
		}

		client := cli.NewClient(viper.GetString("api.url"), viper.GetString("api.token"))

		if err := client.HealthCheck(); err != nil {
			fmt.Printf("❌ API health check failed: %v\n", err)
			fmt.Println("💡 Tip: Make sure the API server is running")
			os.Exit(1)
		}

		if err := client.LoadRules(rules); err != nil {
			fmt.Printf("❌ Failed to load rules: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("✅ Loaded %d rule(s) from %s\n", len(rules), filename)
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
	loadCmd.Flags().BoolVar(&skipValidation, "skip-validation", false, "Skip local validation before loading")
}
