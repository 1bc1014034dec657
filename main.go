package main

import "github.com/lmorchard/tempmongo-go/cmd"

func main() {
	cmd.Execute()
}
