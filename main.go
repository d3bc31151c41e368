package main

import "kardex-ingest/cmd"

func main() {
	cmd.Execute()
}
