package main

import "github.com/derickschaefer/campcheck/cmd"

func main() {
	cmd.Execute()
}
