package main

import "github.com/apexmev/arbiter/cmd"

func main() {
	cmd.Execute()
}
