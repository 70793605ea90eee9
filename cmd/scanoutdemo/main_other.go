//go:build !linux

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "scanoutdemo drives the Linux kernel modesetting interface and only runs on linux")
	os.Exit(1)
}
