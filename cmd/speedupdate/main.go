package main

import "github.com/clearlinux/speedupdate/cmd/speedupdate/cmd"

func main() {
	cmd.Execute()
}
