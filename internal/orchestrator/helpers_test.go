package orchestrator

import (
	"net"
	"strconv"
)

func listenOn(port int) (net.Listener, error) {
	return net.Listen("tcp", ":"+strconv.Itoa(port))
}
