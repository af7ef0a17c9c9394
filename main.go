package main

import "github.com/encodeous/dvr/cmd"

func main() {
	cmd.Execute()
}
