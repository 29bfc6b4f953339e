package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/burrownet/burrow/pkg/network"
	"github.com/burrownet/burrow/pkg/types"
)

var instanceCmd = &cobra.Command{
	Use:   "instance",
	Short: "Manage instance network isolation",
}

var instanceUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Set up network isolation for an instance",
	Long: `Set up network isolation from an instance spec file.

Examples:
  # Create namespace, veth pair, and publishing rules
  burrow instance up -f instance.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, iso, err := loadInstance(cmd)
		if err != nil {
			return err
		}

		if err := iso.SetupInstance(spec); err != nil {
			return err
		}

		fmt.Printf("✓ Instance network ready: %s\n", spec.InstanceID)
		return nil
	},
}

var instanceDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Tear down network isolation for an instance",
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, iso, err := loadInstance(cmd)
		if err != nil {
			return err
		}

		if err := iso.TeardownInstance(spec); err != nil {
			return err
		}

		fmt.Printf("✓ Instance network removed: %s\n", spec.InstanceID)
		return nil
	},
}

// loadInstance reads the spec file and builds an isolator.
func loadInstance(cmd *cobra.Command) (*types.InstanceSpec, *network.Isolator, error) {
	filename, _ := cmd.Flags().GetString("file")
	nsDir, _ := cmd.Flags().GetString("netns-dir")

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file: %w", err)
	}

	var spec types.InstanceSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if spec.InstanceID == "" {
		return nil, nil, fmt.Errorf("spec is missing instanceId")
	}

	iso, err := network.NewIsolator(&network.Config{NamespaceDir: nsDir})
	if err != nil {
		return nil, nil, err
	}

	return &spec, iso, nil
}

func init() {
	instanceCmd.AddCommand(instanceUpCmd)
	instanceCmd.AddCommand(instanceDownCmd)

	instanceCmd.PersistentFlags().StringP("file", "f", "", "Instance spec YAML file (required)")
	instanceCmd.PersistentFlags().String("netns-dir", "", "Namespace runtime directory override")
	_ = instanceUpCmd.MarkPersistentFlagRequired("file")

	rootCmd.AddCommand(instanceCmd)
}
