package main

import "bonappetit-backend/cmd"

func main() {
	cmd.Run()
}
