package main

import (
	"log"

	"github.com/Micheal-18/tick.backend/cmd"
)

func main() {
	if err := cmd.Start(); err != nil {
		log.Fatal(err)
	}
}
