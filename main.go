package main

import "github.com/Sean-Kenneth-Doherty/council/cmd"

func main() {
	cmd.Execute()
}
