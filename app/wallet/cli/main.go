package main

import "github.com/Patrick841130/LKS-sub003/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
