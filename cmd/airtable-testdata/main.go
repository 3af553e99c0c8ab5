package main

import "airtable/cmd/airtable-testdata/cmd"

func main() {
	cmd.Execute()
}
