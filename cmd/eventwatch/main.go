// eventwatch is the reference event consumer: it binds the event socket
// and prints each decoded event. Useful for bringing a board up before
// the real consumer exists.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"

	"fpcontrol-go/types"
)

func main() {
	socket := flag.String("socket", "/run/fpcontrol/events.sock", "event socket path to bind")
	flag.Parse()

	_ = os.Remove(*socket)
	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: *socket, Net: "unixgram"})
	if err != nil {
		fmt.Fprintln(os.Stderr, "eventwatch:", err)
		os.Exit(1)
	}
	defer conn.Close()
	fmt.Println("listening on", *socket)

	buf := make([]byte, 16)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			fmt.Fprintln(os.Stderr, "eventwatch:", err)
			os.Exit(1)
		}
		if n != 1 {
			fmt.Printf("malformed message (%d bytes)\n", n)
			continue
		}
		ev := types.Event(buf[0])
		fmt.Printf("event %d (%s)\n", buf[0], ev)
		if ev == types.EventExit {
			fmt.Println("daemon exited")
			return
		}
	}
}
