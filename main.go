package main

import "github.com/psycacid/musichub/cmd"

func main() {
	cmd.Execute()
}
