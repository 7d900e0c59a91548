package main

import "github.com/bachue/outrotate/cmd"

func main() {
	cmd.Execute()
}
