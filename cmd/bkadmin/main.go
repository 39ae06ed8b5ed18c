package main

import (
	"os"

	"github.com/dmitrijs2005/bulletinkeeper/internal/admincli"
)

func main() {
	os.Exit(admincli.Run(os.Args[1:], os.Stdout, os.Stderr))
}
