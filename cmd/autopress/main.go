package main

import (
	"autopress/cmd/cmd"
	"autopress/internal/logger"
)

func main() {
	logger.Init()
	cmd.Execute()
}
