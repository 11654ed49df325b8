package notify

import (
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestReadySendsDatagram(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "notify.sock")
	conn, err := net.ListenPacket("unixgram", sock)
	if err != nil {
		t.Skipf("unixgram unavailable: %v", err)
	}
	defer conn.Close()

	t.Setenv("NOTIFY_SOCKET", sock)
	n := New()
	if !n.Available() {
		t.Fatal("notifier should see the socket")
	}
	if !n.Ready("browser ready") {
		t.Fatal("Ready should report success")
	}

	buf := make([]byte, 256)
	conn.SetDeadline(time.Now().Add(time.Second))
	c, _, err := conn.ReadFrom(buf)
	if err != nil {
		t.Fatal(err)
	}
	payload := string(buf[:c])
	if !strings.Contains(payload, "READY=1") || !strings.Contains(payload, "STATUS=browser ready") {
		t.Fatalf("unexpected payload: %q", payload)
	}
}

func TestWithoutSocketEverythingIsNoop(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	n := New()
	if n.Available() {
		t.Fatal("no socket must mean unavailable")
	}
	if n.Ready("") || n.Status("x") || n.Stopping() {
		t.Fatal("sends must report false without a socket")
	}
}
