package main

import "github.com/usedamru/sql2nosql/cmd"

func main() {
	cmd.Execute()
}
