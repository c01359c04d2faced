package main

import "github.com/frahmantamala/billing-reconciliation/cmd"

func main() {
	cmd.Execute()
}
