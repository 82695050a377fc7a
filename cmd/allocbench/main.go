package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"
	"unsafe"

	"github.com/boundarytag/allocore"
)

func main() {
	ops := flag.Int("ops", 20000, "number of alloc/free operations to run")
	maxSize := flag.Int("max-size", 4096, "maximum allocation size in bytes")
	seed := flag.Int64("seed", 1, "PRNG seed")
	verifyEvery := flag.Int("verify-every", 500, "run the structural verifier every N operations (0 disables)")
	dump := flag.Bool("dump", false, "dump free lists and regions on exit")
	flag.Parse()

	fmt.Println("allocbench starting...")

	a, err := allocore.NewDefault()
	if err != nil {
		fmt.Println("failed to construct heap:", err)
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(*seed))
	live := make([]unsafe.Pointer, 0, *ops)
	start := time.Now()

	for i := 0; i < *ops; i++ {
		if len(live) > 0 && rng.Intn(3) == 0 {
			idx := rng.Intn(len(live))
			a.Free(live[idx])
			live[idx] = live[len(live)-1]
			live = live[:len(live)-1]
		} else {
			size := uint64(rng.Intn(*maxSize) + 1)
			p := a.Alloc(size)
			if p != nil {
				live = append(live, p)
			}
		}

		if *verifyEvery > 0 && i%*verifyEvery == 0 {
			if !a.Verify() {
				fmt.Println("verification failed at op", i)
				os.Exit(1)
			}
		}
	}

	for _, p := range live {
		a.Free(p)
	}

	elapsed := time.Since(start)

	if !a.Verify() {
		fmt.Println("final verification failed")
		os.Exit(1)
	}

	if *dump {
		a.DumpFreeLists()
		a.DumpRegions()
	}

	fmt.Printf("allocbench done: %s elapsed=%s\n", a.Stats(), elapsed)
}
