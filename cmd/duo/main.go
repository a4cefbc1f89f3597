package main

import "github.com/kerry-okpere/ai-video-conferencing/internal/cli"

func main() {
	cli.Execute()
}
