package main

import "github.com/yukikurage/task-management-client/internal/cli"

var version = "dev"

func main() {
	cli.Execute(version)
}
