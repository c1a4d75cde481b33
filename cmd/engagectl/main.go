// Command engagectl operates the engagement analytics backend: recomputing
// snapshots, rendering heatmaps, hashing service keys and replaying scripted
// reading sessions against a running API.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := runWithArgs(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
