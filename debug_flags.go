package main

import "github.com/spf13/cobra"

func addDebugFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolVar(&FlagDebug, "debug", false, "Enable debug mode (implies --log-verbose DEBUG)")

	cmd.PersistentFlags().BoolVar(&FlagDumpSource, "dump-source", false, "Print the embedded kernel source and exit")
	cmd.PersistentFlags().IntVar(&FlagCPUWorkers, "cpu-workers", 0, "Worker goroutines for the CPU backend (default NumCPU)")
}
