package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mock-processor",
		Short: "Stand-in for the payment processor and upstream producers in local runs",
	}

	rootCmd.AddCommand(sendCmd())
	rootCmd.AddCommand(signCmd())
	rootCmd.AddCommand(emitCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
