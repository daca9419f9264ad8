package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and write the job-processing config table",
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value, overriding its default",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a config value's effective setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every recognized config key with its effective value",
	RunE:  runConfigList,
}

func init() {
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configListCmd)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, cfg, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := cfg.Set(ctx, args[0], args[1]); err != nil {
		return err
	}
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, cfg, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	val, err := cfg.Get(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), val)
	return nil
}

func runConfigList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, cfg, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	values, err := cfg.List(ctx)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := cmd.OutOrStdout()
	for _, k := range keys {
		fmt.Fprintf(out, "%s=%s\n", k, values[k])
	}
	return nil
}
