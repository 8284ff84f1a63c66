package main

import "github.com/SoarinFerret/BreakWarden/cmd/bwctl/arg"

func main() {
	arg.Execute()
}
