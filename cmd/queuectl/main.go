// Command queuectl is the CLI surface of §6: enqueue work, run and
// manage worker processes, and inspect queue/DLQ/config state against
// a local sqlite-backed store.
package main

import "os"

func main() {
	os.Exit(Execute())
}
