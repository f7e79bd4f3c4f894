package main

import (
	"creatorpulse/cmd/handlers"
	"creatorpulse/internal/logger"
)

func main() {
	logger.Init()
	handlers.Execute()
}
