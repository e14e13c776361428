package main

import "github.com/nhle/inboxdesk/internal/cli"

func main() {
	cli.Execute()
}
