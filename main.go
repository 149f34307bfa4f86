package main

import "github.com/fakeyudi/codeweave/cmd"

func main() {
	cmd.Execute()
}
