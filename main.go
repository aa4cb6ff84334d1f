package main

import "github.com/gregriff/huddle/cmd"

func main() {
	cmd.Execute()
}
