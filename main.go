package main

import "github.com/ioc-radar/backend/cmd"

func main() {
	cmd.Execute()
}
