package main

import (
	"os"

	"github.com/unkn0wn-root/querycache/cmd/tasks/cmd"
)

func main() {
	os.Exit(cmd.Execute(os.Args[1:], os.Stdout, os.Stderr, nil))
}
