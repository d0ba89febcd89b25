package main

import (
	"fmt"
	"os"

	"swarmdir/common"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Println("Usage: client <tracker_info.txt>")
		os.Exit(1)
	}

	addrs, err := common.ReadTrackerAddresses(os.Args[1])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	c := newClientState(addrs)
	c.run()
}
