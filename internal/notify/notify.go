// Package notify implements the sd_notify(3) protocol so systemd can keep
// the unit in the activating state until the browser is actually ready to
// take questions. Off systemd (no NOTIFY_SOCKET) every call is a no-op.
package notify

import (
	"net"
	"os"
	"strings"
)

// Notifier talks to the systemd notification socket.
type Notifier struct {
	addr string
}

// New reads NOTIFY_SOCKET. Abstract-namespace sockets use a leading "@".
func New() *Notifier {
	path := os.Getenv("NOTIFY_SOCKET")
	if strings.HasPrefix(path, "@") {
		path = "\x00" + path[1:]
	}
	return &Notifier{addr: path}
}

// Available reports whether a notification socket is configured.
func (n *Notifier) Available() bool {
	return n.addr != ""
}

// Ready signals READY=1, optionally updating STATUS.
func (n *Notifier) Ready(status string) bool {
	lines := []string{"READY=1"}
	if status != "" {
		lines = append(lines, "STATUS="+status)
	}
	return n.send(strings.Join(lines, "\n"))
}

// Status updates the STATUS line shown by systemctl.
func (n *Notifier) Status(message string) bool {
	return n.send("STATUS=" + message)
}

// Stopping signals STOPPING=1 during shutdown.
func (n *Notifier) Stopping() bool {
	return n.send("STOPPING=1")
}

// send delivers one datagram, swallowing socket errors: notification is
// best effort and never blocks startup.
func (n *Notifier) send(payload string) bool {
	if n.addr == "" {
		return false
	}
	conn, err := net.Dial("unixgram", n.addr)
	if err != nil {
		return false
	}
	defer conn.Close()
	if _, err := conn.Write([]byte(payload)); err != nil {
		return false
	}
	return true
}
