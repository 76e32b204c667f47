// lmx-mockserver runs the in-memory mock backend for local development, so
// the console can be exercised without a real LMeterX deployment.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/ymghtzz/LMeterX-sub000/test/mockbackend"
)

func main() {
	addr := flag.String("addr", ":5000", "listen address")
	flag.Parse()

	server := mockbackend.NewServer(nil)

	fmt.Printf("mock LMeterX backend listening on %s\n", *addr)
	if err := http.ListenAndServe(*addr, server.Router()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
