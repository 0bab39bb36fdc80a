package main

import "github.com/Suraj-Bhadauria/hackrx-DO/internal/adapters/driving/cli"

func main() {
	cli.Execute()
}
