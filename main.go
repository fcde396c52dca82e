package main

import "github.com/osusec/beavercds-ng/cmd"

func main() {
	cmd.Execute()
}
