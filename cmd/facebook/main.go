package main

import (
	"os"

	"review_sync/internal/bootstrap"
	"review_sync/internal/domain"
)

func main() {
	os.Exit(bootstrap.Run(domain.PlatformFacebook, os.Args[1:]))
}
