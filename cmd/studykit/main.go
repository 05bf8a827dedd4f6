package main

import "github.com/dgallion1/studykit/internal/cli"

func main() {
	cli.Execute()
}
