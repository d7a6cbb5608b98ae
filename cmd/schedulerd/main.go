// Command schedulerd is the heterogeneous-resource task scheduler's CLI
// entrypoint.
package main

import "github.com/aw32/hetsched/cmd"

func main() {
	cmd.Execute()
}
