package main

import "github.com/spf13/cobra"

var geoCmd = &cobra.Command{
	Use:   "geo",
	Short: "Census geographic data pipeline",
	Long:  "Fetch, convert, load, and join the 2010 Census reference and summary files that back geographic search and ratings.",
}

func init() { rootCmd.AddCommand(geoCmd) }
