package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mialab",
		Short:         "Brain MRI preprocessing: normalization, skull stripping and atlas registration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "config.yaml", "Path to the YAML configuration file")

	root.AddCommand(newPreprocessCmd())
	root.AddCommand(newConfigCmd())
	return root
}
