// Command naming-server runs the distributed filesystem naming server.
package main

import "github.com/nsfs/naming/cmd"

func main() {
	cmd.Execute()
}
