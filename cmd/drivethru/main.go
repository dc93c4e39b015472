package main

import "github.com/vedsharma/drivethru/cmd"

func main() {
	cmd.Execute()
}
