package main

import (
	"os"
)

func main() {
	a := newApp(os.Stdout, os.Stderr)
	if err := a.execute(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
