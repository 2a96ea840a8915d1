package main

import "mlwh-sync/cmd"

func main() {
	cmd.Execute()
}
