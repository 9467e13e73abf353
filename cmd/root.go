package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "jdiag-bridge",
	Short: "JSON-RPC session engine bridging automation clients to a JDWP target",
	Long: `jdiag-bridge exposes a line-delimited JSON-RPC 2.0 interface on stdin/stdout
and multiplexes commands against one attached JVM via a Java Debug Interface
façade: attach/detach, breakpoints, stepping, stack and value inspection,
mapping-aware deobfuscation, and asynchronous debugger events.

Every request on stdin gets exactly one response on stdout; stderr carries
structured logs only, so the JSON-RPC channel never gets a stray print mixed
into it.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func GetRootCmd() *cobra.Command {
	return rootCmd
}
