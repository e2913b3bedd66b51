package main

import "github.com/MeKo-Tech/code11/cmd/code11/cmd"

func main() {
	cmd.Execute()
}
