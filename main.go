package main

import "github.com/hurou927/ora-schema-gen/cmd"

func main() {
	cmd.Execute()
}
