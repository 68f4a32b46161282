package main

import "github.com/oshokin/nonodo-launcher/cmd/nonodo-fetch/cmd"

func main() {
	cmd.Execute()
}
