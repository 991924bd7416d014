// Command bufferctl drives the Buffer API from the shell: it prints the login
// URL, exchanges authorization codes and sends calls to any known endpoint.
package main

import (
	"fmt"
	"os"
)

func main() {
	root, c := newRootCmd()
	if err := c.run(root); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
