package main

import "github.com/khanhnv2901/siteaudit/cmd"

// execCmd is indirected so tests can verify main wiring without
// executing the real command tree.
var execCmd = cmd.Execute

func main() {
	execCmd()
}
