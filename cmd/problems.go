package main

import "github.com/spf13/cobra"

var problemsCmd = &cobra.Command{
	Use:   "problems",
	Short: "Manage the problem catalog",
}

func init() { rootCmd.AddCommand(problemsCmd) }
