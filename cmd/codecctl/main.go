// codecctl decodes and builds Teltonika Codec8, Codec8E and Codec12 frames from the
// command line.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
