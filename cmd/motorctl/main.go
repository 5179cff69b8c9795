package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	ethercat "github.com/charleszyong/ethercat-driver"
	log "github.com/sirupsen/logrus"
)

const targetRPM = 10

func main() {
	log.SetLevel(log.InfoLevel)

	if len(os.Args) < 2 {
		fmt.Printf("Usage: %s <network_interface>\n", os.Args[0])
		fmt.Printf("Example: %s eth0\n", os.Args[0])
		os.Exit(1)
	}
	os.Exit(run(os.Args[1]))
}

// run returns the process exit code. Every exit path runs the deferred
// close, which requests the slaves back to INIT before the socket goes
// away.
func run(ifname string) int {
	profile := ethercat.DefaultProfile()
	log.Infof("[MAIN] motor control | interface %v | target %v rpm (%v units)",
		ifname, targetRPM, ethercat.VelocityFromRPM(targetRPM, profile.UnitsPerRev))

	master, err := ethercat.NewMaster(ifname)
	if err != nil {
		log.Errorf("[MAIN] could not open %v : %v", ifname, err)
		return 1
	}
	defer master.Close()

	engine, err := ethercat.NewEngine(master, profile, ethercat.Config{TargetRPM: targetRPM})
	if err != nil {
		log.Errorf("[MAIN] %v", err)
		return 1
	}

	if err := engine.Setup(); err != nil {
		log.Errorf("[MAIN] setup failed : %v", err)
		return 1
	}

	// Cancellation is cooperative, the engine polls once per cycle and
	// always runs its shutdown sequence before returning
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := engine.Run(ctx); err != nil {
		log.Errorf("[MAIN] control loop aborted : %v", err)
		return 1
	}
	return 0
}
