// Command blinkdb-distributor is a transparent TCP splicer that picks a
// backend blinkdb-server by round-robin per incoming connection and
// byte-copies in both directions until either side closes, grounded on
// original_source/Part B/src/load_balancer.cpp. It preserves RESP
// framing by virtue of being byte-transparent and makes no sticky-
// session or consistent-hashing demands on the backends.
package main

import (
	"flag"
	"fmt"
	"io"
	"net"
	"strings"

	"k8s.io/klog/v2"

	"github.com/madhumita77/blinkdb-project/internal/distributor"
)

func main() {
	port := flag.Int("port", 9000, "TCP port to listen on")
	backends := flag.String("backends", "127.0.0.1:9001", "comma-separated list of backend addresses")
	flag.Parse()

	pool := distributor.NewPool(strings.Split(*backends, ","))

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", *port))
	if err != nil {
		klog.Fatalf("blinkdb-distributor: listen: %v", err)
	}
	defer ln.Close()

	klog.Infof("blinkdb-distributor: listening on port %d, backends %v", *port, *backends)

	for {
		client, err := ln.Accept()
		if err != nil {
			klog.Warningf("blinkdb-distributor: accept: %v", err)
			continue
		}
		go serve(client, pool)
	}
}

func serve(client net.Conn, pool *distributor.Pool) {
	defer client.Close()

	backendAddr, err := pool.Next()
	if err != nil {
		klog.Errorf("blinkdb-distributor: %v", err)
		return
	}

	backend, err := net.Dial("tcp", backendAddr)
	if err != nil {
		klog.Errorf("blinkdb-distributor: dialing backend %s: %v", backendAddr, err)
		return
	}
	defer backend.Close()

	done := make(chan struct{}, 2)
	go splice(done, backend, client)
	go splice(done, client, backend)
	<-done
	client.Close()
	backend.Close()
	<-done
}

// splice copies bytes from src to dst until either side closes, then
// signals done. Each direction of a connection pair runs its own splice;
// once one finishes (e.g. the client hanging up), serve closes both
// connections, which unblocks the other via its Read/Write returning an
// error.
func splice(done chan<- struct{}, dst io.Writer, src io.Reader) {
	io.Copy(dst, src)
	done <- struct{}{}
}
