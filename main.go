package main

import "github.com/lista-crm/sites-platform/cmd"

func main() {
	cmd.Init()
}
