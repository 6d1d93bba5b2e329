package main

import "github.com/sigp/ethereum-apis/cmd"

func main() {
	cmd.Execute()
}
