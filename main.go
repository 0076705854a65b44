package main

import "github.com/Yates-Labs/permitdesk/cmd"

func main() {
	cmd.Execute()
}
