package main

import "bucket-list-backend/cmd"

func main() {
	cmd.Execute()
}
