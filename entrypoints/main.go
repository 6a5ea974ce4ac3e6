package main

import (
	"github.com/Laisky/institute-cms/cmd"
)

func main() {
	cmd.Execute()
}
