package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/burrownet/burrow/pkg/firewall"
	"github.com/burrownet/burrow/pkg/log"
	"github.com/burrownet/burrow/pkg/netiface"
	"github.com/burrownet/burrow/pkg/netns"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "burrow",
	Short: "Burrow - Network isolation for edge container workloads",
	Long: `Burrow manages per-instance network isolation for an edge container
runtime: named network namespaces under /run/netns, veth wiring, and the
iptables rules that enforce firewall and port-publishing policy between
instances and the host.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("log-level")
		log.Init(log.Config{Level: log.Level(level)})
	},
}

func init() {
	// Set version template
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Burrow version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	// Add subcommands
	rootCmd.AddCommand(netnsCmd)
	rootCmd.AddCommand(chainCmd)
	rootCmd.AddCommand(ruleCmd)
	rootCmd.AddCommand(rulesCmd)
}

// newNamespaceManager builds a namespace manager honoring the --netns-dir flag.
func newNamespaceManager(cmd *cobra.Command) (*netns.Manager, error) {
	dir, _ := cmd.Flags().GetString("netns-dir")
	return netns.NewManager(netiface.NewManager(), &netns.Config{RuntimeDir: dir})
}

// Namespace commands
var netnsCmd = &cobra.Command{
	Use:   "netns",
	Short: "Manage network namespaces",
}

var netnsCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a named network namespace",
	Long: `Create a network namespace published under the runtime directory.

The namespace is bind-mounted at <netns-dir>/NAME with loopback already up.
Creating a namespace that exists is a no-op.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newNamespaceManager(cmd)
		if err != nil {
			return err
		}

		if err := mgr.CreateNetworkNamespace(args[0]); err != nil {
			return err
		}

		fmt.Printf("✓ Namespace created: %s\n", mgr.GetNetworkNamespacePath(args[0]))
		return nil
	},
}

var netnsDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a named network namespace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newNamespaceManager(cmd)
		if err != nil {
			return err
		}

		if err := mgr.DeleteNetworkNamespace(args[0]); err != nil {
			return err
		}

		fmt.Printf("✓ Namespace deleted: %s\n", args[0])
		return nil
	},
}

var netnsPathCmd = &cobra.Command{
	Use:   "path NAME",
	Short: "Print the filesystem path of a namespace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newNamespaceManager(cmd)
		if err != nil {
			return err
		}

		fmt.Println(mgr.GetNetworkNamespacePath(args[0]))
		return nil
	},
}

var netnsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List published network namespaces",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newNamespaceManager(cmd)
		if err != nil {
			return err
		}

		names, err := mgr.ListNamespaces()
		if err != nil {
			return err
		}

		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

func init() {
	netnsCmd.AddCommand(netnsCreateCmd)
	netnsCmd.AddCommand(netnsDeleteCmd)
	netnsCmd.AddCommand(netnsPathCmd)
	netnsCmd.AddCommand(netnsListCmd)

	netnsCmd.PersistentFlags().String("netns-dir", netns.DefaultRuntimeDir, "Namespace runtime directory")
}

// Chain commands
var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Manage iptables chains",
}

var chainNewCmd = &cobra.Command{
	Use:   "new NAME",
	Short: "Create a chain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return tableController(cmd).NewChain(args[0])
	},
}

var chainDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete an empty chain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return tableController(cmd).DeleteChain(args[0])
	},
}

var chainFlushCmd = &cobra.Command{
	Use:   "flush NAME",
	Short: "Remove all rules from a chain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return tableController(cmd).ClearChain(args[0])
	},
}

var chainListCmd = &cobra.Command{
	Use:   "list",
	Short: "List chains in the table",
	RunE: func(cmd *cobra.Command, args []string) error {
		chains, err := tableController(cmd).ListChains()
		if err != nil {
			return err
		}

		for _, chain := range chains {
			fmt.Println(chain)
		}
		return nil
	},
}

func init() {
	chainCmd.AddCommand(chainNewCmd)
	chainCmd.AddCommand(chainDeleteCmd)
	chainCmd.AddCommand(chainFlushCmd)
	chainCmd.AddCommand(chainListCmd)

	chainCmd.PersistentFlags().String("table", firewall.DefaultTable, "Netfilter table")
}

// tableController builds a firewall controller for the --table flag.
func tableController(cmd *cobra.Command) *firewall.IPTables {
	table, _ := cmd.Flags().GetString("table")
	return firewall.NewIPTables(table)
}

// buildRule assembles a rule builder from the rule flags.
func buildRule(cmd *cobra.Command) *firewall.RuleBuilder {
	source, _ := cmd.Flags().GetString("source")
	dest, _ := cmd.Flags().GetString("destination")
	proto, _ := cmd.Flags().GetString("protocol")
	sport, _ := cmd.Flags().GetUint16("sport")
	dport, _ := cmd.Flags().GetUint16("dport")
	jump, _ := cmd.Flags().GetString("jump")

	return firewall.NewRuleBuilder().
		Source(source).
		Destination(dest).
		Protocol(proto).
		SourcePort(sport).
		DestinationPort(dport).
		Jump(jump)
}

// Rule commands
var ruleCmd = &cobra.Command{
	Use:   "rule",
	Short: "Manage iptables rules",
}

var ruleAppendCmd = &cobra.Command{
	Use:   "append CHAIN",
	Short: "Append a rule to a chain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return tableController(cmd).Append(args[0], buildRule(cmd))
	},
}

var ruleInsertCmd = &cobra.Command{
	Use:   "insert CHAIN POSITION",
	Short: "Insert a rule into a chain at a position (1-based)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var position uint
		if _, err := fmt.Sscanf(args[1], "%d", &position); err != nil || position == 0 {
			return fmt.Errorf("invalid position %q", args[1])
		}
		return tableController(cmd).Insert(args[0], position, buildRule(cmd))
	},
}

var ruleDeleteCmd = &cobra.Command{
	Use:   "delete CHAIN",
	Short: "Delete the first rule matching the given specification",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return tableController(cmd).DeleteRule(args[0], buildRule(cmd))
	},
}

var rulesCmd = &cobra.Command{
	Use:   "rules CHAIN",
	Short: "List chain rules with packet/byte counters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lines, err := tableController(cmd).ListAllRulesWithCounters(args[0])
		if err != nil {
			return err
		}

		for _, line := range lines {
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	ruleCmd.AddCommand(ruleAppendCmd)
	ruleCmd.AddCommand(ruleInsertCmd)
	ruleCmd.AddCommand(ruleDeleteCmd)

	for _, cmd := range []*cobra.Command{ruleAppendCmd, ruleInsertCmd, ruleDeleteCmd} {
		cmd.Flags().String("source", "", "Source address or CIDR")
		cmd.Flags().String("destination", "", "Destination address or CIDR")
		cmd.Flags().String("protocol", "", "Protocol (tcp, udp)")
		cmd.Flags().Uint16("sport", 0, "Source port")
		cmd.Flags().Uint16("dport", 0, "Destination port")
		cmd.Flags().String("jump", "", "Jump target")
	}

	ruleCmd.PersistentFlags().String("table", firewall.DefaultTable, "Netfilter table")
	rulesCmd.Flags().String("table", firewall.DefaultTable, "Netfilter table")
}
