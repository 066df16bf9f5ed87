// Command udpecho
// Author: momentics <momentics@gmail.com>
//
// Minimal live-receive driver: subscribes to a UDP port and logs every
// datagram it receives. The Go counterpart of
// _examples/original_source/examples/simple_echo.cc.
package main

import (
	"flag"
	"log"

	"github.com/atupone/AtuReactor/affinity"
	"github.com/atupone/AtuReactor/live"
	"github.com/atupone/AtuReactor/reactor"
)

func main() {
	port := flag.Int("port", 9999, "UDP port to subscribe to (0 for an OS-assigned port)")
	cpu := flag.Int("cpu", -1, "pin the reactor goroutine's OS thread to this CPU (-1 disables pinning)")
	flag.Parse()

	if *cpu >= 0 {
		pinner := affinity.NewPinner()
		if err := pinner.Pin(*cpu, -1); err != nil {
			log.Printf("affinity.Pinner.Pin(%d): %v (continuing unpinned)", *cpu, err)
		}
	}

	react, err := reactor.New()
	if err != nil {
		log.Fatalf("reactor.New: %v", err)
	}
	defer react.Close()

	recv, err := live.NewReceiver(react, live.DefaultReceiverConfig())
	if err != nil {
		log.Fatalf("live.NewReceiver: %v", err)
	}
	defer recv.Close()

	bound, err := recv.Subscribe(uint16(*port), nil, func(_ any, data []byte, status reactor.Status, ts reactor.Timestamp) {
		log.Printf("recv %d bytes status=%d ts=%d.%09d: %q", len(data), status, ts.Sec, ts.Nsec, data)
	})
	if err != nil {
		log.Fatalf("Subscribe: %v", err)
	}
	log.Printf("listening on UDP port %d", bound)

	for {
		if err := react.RunOnce(1000); err != nil {
			log.Fatalf("RunOnce: %v", err)
		}
	}
}
