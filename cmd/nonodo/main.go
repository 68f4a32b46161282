package main

import "github.com/oshokin/nonodo-launcher/cmd/nonodo/cmd"

func main() {
	cmd.Execute()
}
