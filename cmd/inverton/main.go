// Command inverton indexes text files and answers keyword, phrase and
// boolean queries over them.
package main

import (
	"os"

	"github.com/Adithya-Monish-Kumar-K/inverton/cmd/inverton/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
