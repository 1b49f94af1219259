package main

import "github.com/hussaintmg/Population-Weather-App/cmd"

func main() {
	cmd.Execute()
}
