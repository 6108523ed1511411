package main

import (
	"context"
	"log"

	"emberhollow/client/internal/app"
)

func main() {
	if err := app.Run(context.Background()); err != nil {
		log.Fatalf("%v", err)
	}
}
