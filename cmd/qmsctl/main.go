// Command qmsctl manages a QMS session from the terminal.
package main

import "github.com/MrEthical07/qmsauth/cmd/qmsctl/cmd"

func main() {
	cmd.Execute()
}
