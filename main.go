package main

import "houzz-pro-scraper/cmd"

func main() {
	cmd.Execute()
}
