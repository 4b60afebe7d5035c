package main

import "github.com/Tiliavir/shiftr/cmd"

func main() {
	cmd.Execute()
}
