// The mailsheet command copies unread Gmail inbox messages into a
// Google spreadsheet, exactly once per message.
package main

import (
	"os"

	"github.com/matta/mailsheet/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
