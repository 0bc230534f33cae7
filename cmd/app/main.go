package main

import (
	"os"

	_ "uptimeboard/docs"

	"github.com/joho/godotenv"
)

// dotenvErr is reported once a logger exists.
var dotenvErr error

// Package main Device Uptime Board.
//
// @title Device Uptime Board
// @version 1.0
// @description Windowed uptime of heartbeat-emitting devices.
//
// @BasePath /
func main() {
	dotenvErr = godotenv.Load(".env")

	if err := rootcmd.Execute(); err != nil {
		os.Exit(1)
	}
}
