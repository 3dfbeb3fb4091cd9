package main

import (
	"fmt"
	"os"

	"github.com/canonmap/canonmap/pkg/mcp"
)

func main() {
	endpoint := os.Getenv("CANONMAP_ENDPOINT")

	s := mcp.NewServer(endpoint)
	if err := s.Serve(); err != nil {
		fmt.Fprintf(os.Stderr, "mcp server error: %v\n", err)
		os.Exit(1)
	}
}
