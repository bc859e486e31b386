package main

import "os"

func main() {
	rootCmd := createRootCmd()
	// results go to stdout, cobra defaults to stderr
	rootCmd.SetOut(os.Stdout)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
