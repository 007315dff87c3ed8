package main

import (
	cmd "github.com/kerbaras/mdhold/cmd/mdhold"
)

func main() {
	cmd.Execute()
}
