package main

import "guardsync/internal/app/server"

func main() {
	server.Run()
}
