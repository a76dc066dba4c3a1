package main

import "github.com/gyaneshwarpardhi/mrmlscene/cmd/mrmlctl/internal/command"

func main() {
	command.Execute()
}
