package main

import "recap/cmd"

func main() {
	cmd.Execute()
}
