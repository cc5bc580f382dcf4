package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/leakpath/pkg/analysis"
)

// exclusionsCommand creates the exclusions command. Without a subcommand it
// prints the rules an analysis would use, in the rule file format.
func (c *CLI) exclusionsCommand() *cobra.Command {
	var (
		file       string
		noDefaults bool
	)

	cmd := &cobra.Command{
		Use:   "exclusions",
		Short: "Print the exclusion rules as TOML",
		Long: `Print the exclusion rules in the rule file format.

The built-in rules are merged with --exclusions (or the exclusions file from
the config). The output can be edited and passed back with --exclusions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, skip := c.ruleSource(cmd, file, noDefaults)
			rs, err := analysis.LoadRules(path, skip)
			if err != nil {
				return err
			}
			return rs.WriteTOML(c.out)
		},
	}

	cmd.Flags().StringVarP(&file, "exclusions", "e", "", "TOML rule file merged with the defaults")
	cmd.Flags().BoolVar(&noDefaults, "no-defaults", false, "omit the built-in rules")
	cmd.AddCommand(c.exclusionsCheckCommand())
	return cmd
}

// exclusionsCheckCommand creates the "exclusions check" subcommand.
func (c *CLI) exclusionsCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Validate a rule file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := analysis.LoadRules(args[0], true)
			if err != nil {
				return err
			}
			printSuccess("%s: %d rule(s)", args[0], rs.Len())
			return nil
		},
	}
}

// ruleSource applies the config to unset exclusion flags.
func (c *CLI) ruleSource(cmd *cobra.Command, file string, noDefaults bool) (string, bool) {
	if !cmd.Flags().Changed("exclusions") {
		file = c.Config.Exclusions
	}
	if !cmd.Flags().Changed("no-defaults") {
		noDefaults = c.Config.NoDefaults
	}
	return file, noDefaults
}
