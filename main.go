package main

import "github.com/jmehdipour/order-sms/cmd"

func main() {
	cmd.Execute()
}
