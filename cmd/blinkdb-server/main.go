// Command blinkdb-server runs the single-threaded TCP server fronting a
// bounded, LRU-governed resident key/value set backed by a flat-file
// disk overflow tier, speaking a RESP-2 subset.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"k8s.io/klog/v2"

	"github.com/madhumita77/blinkdb-project/internal/engine"
	"github.com/madhumita77/blinkdb-project/internal/server"
)

func main() {
	port := flag.Int("port", server.DefaultPort, "TCP port to listen on")
	capacity := flag.Int("capacity", engine.DefaultCapacity, "maximum resident key count")
	data := flag.String("data", server.DefaultDataFile, "path to the persistence file")
	flushInterval := flag.Duration("flush-interval", engine.DefaultFlushInterval, "background flush period")
	flag.Parse()

	cfg := server.Config{
		Port:          *port,
		Capacity:      *capacity,
		DataFile:      *data,
		FlushInterval: *flushInterval,
	}

	srv, err := server.New(cfg)
	if err != nil {
		klog.Fatalf("blinkdb-server: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		klog.Infof("blinkdb-server: shutting down")
		if err := srv.Close(); err != nil {
			klog.Errorf("blinkdb-server: shutdown flush failed: %v", err)
		}
		os.Exit(0)
	}()

	if err := srv.Run(); err != nil {
		klog.Fatalf("blinkdb-server: %v", err)
	}
}
