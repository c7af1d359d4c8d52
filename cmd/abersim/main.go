package main

import "github.com/wfslab/abersim/cmd/abersim/cmd"

func main() {
	cmd.Execute()
}
