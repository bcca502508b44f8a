package main

import "github.com/MeKo-Tech/soilsense/cmd/soilsense/cmd"

func main() {
	cmd.Execute()
}
