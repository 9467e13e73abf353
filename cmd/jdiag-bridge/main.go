package main

import "github.com/mabhi256/jdiag-bridge/cmd"

func main() {
	cmd.Execute()
}
