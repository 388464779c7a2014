package main

import (
	"errors"
	"io/fs"
	"log"

	"github.com/dmitrijs2005/awaykeeper/internal/cli"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("failed to load .env file: %v", err)
	}
	cli.Execute()
}
