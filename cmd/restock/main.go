package main

import (
	"log"

	"github.com/MrSnakeDoc/restock/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ restock failed to start: %v", err)
	}
}
