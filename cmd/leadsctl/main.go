// Command leadsctl consulta a API de leads pelo terminal.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(os.Getenv).Execute(); err != nil {
		os.Exit(1)
	}
}
