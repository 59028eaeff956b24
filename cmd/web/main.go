package main

import "platform_backend/internal/app"

func main() {
	app.Run()
}
