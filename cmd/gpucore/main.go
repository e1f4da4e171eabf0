// Command gpucore brings up a device, runs a few clear-and-present frames and tears everything
// down again, reporting objects that were not released.
package main

import (
	"os"
)

func main() {
	os.Exit(execute(os.Args[1:]))
}
