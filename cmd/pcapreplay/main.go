// Command pcapreplay
// Author: momentics <momentics@gmail.com>
//
// Replays a capture file through the reactor, logging every UDP payload
// dispatched to the given destination port. The Go counterpart of
// _examples/original_source/examples/pcap_replay.cc.
package main

import (
	"flag"
	"log"

	"github.com/atupone/AtuReactor/reactor"
	"github.com/atupone/AtuReactor/replay"
)

func main() {
	path := flag.String("file", "", "capture file to replay")
	port := flag.Int("port", 9999, "destination UDP port to dispatch")
	mode := flag.String("mode", "timed", "replay mode: timed, flood, or step")
	speed := flag.Float64("speed", 1.0, "TIMED-mode speed multiplier")
	flag.Parse()

	if *path == "" {
		log.Fatal("-file is required")
	}

	cfg := replay.DefaultPcapConfig()
	cfg.SpeedMultiplier = *speed
	switch *mode {
	case "timed":
		cfg.Mode = replay.ModeTimed
	case "flood":
		cfg.Mode = replay.ModeFlood
	case "step":
		cfg.Mode = replay.ModeStep
	default:
		log.Fatalf("unknown mode %q", *mode)
	}

	react, err := reactor.New()
	if err != nil {
		log.Fatalf("reactor.New: %v", err)
	}
	defer react.Close()

	player := replay.NewReplayer(react, cfg)
	if err := player.Open(*path); err != nil {
		log.Fatalf("Open: %v", err)
	}
	defer player.Close()

	count := 0
	if _, err := player.Subscribe(uint16(*port), nil, func(_ any, data []byte, status reactor.Status, ts reactor.Timestamp) {
		count++
		log.Printf("pkt %d: %d bytes ts=%d.%09d", count, len(data), ts.Sec, ts.Nsec)
	}); err != nil {
		log.Fatalf("Subscribe: %v", err)
	}

	player.Start()
	for !player.IsFinished() {
		if cfg.Mode == replay.ModeStep {
			if !player.Step() {
				break
			}
			continue
		}
		if err := react.RunOnce(100); err != nil {
			log.Fatalf("RunOnce: %v", err)
		}
	}
	log.Printf("replay finished: %d packets dispatched", count)
}
