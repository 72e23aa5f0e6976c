package main

import "github.com/ooyeku/streamcsv/cmd"

func main() {
	cmd.Execute()
}
