package main

import "github.com/sarchlab/mesibus/cmd"

func main() {
	cmd.Execute()
}
