package main

import "github.com/ethanolivertroy/psirt-check/cmd"

func main() {
	cmd.Execute()
}
