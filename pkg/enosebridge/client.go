package enosebridge

import (
	"context"
	"fmt"
	"io"
	"net"

	"github.com/ghalamif/enosebridge/internal/adapters/serial"
)

// SendCommand delivers one command the way the display client does: connect,
// write the token, close. The bridge never replies.
func SendCommand(ctx context.Context, addr, command string) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial command endpoint %s: %w", addr, err)
	}
	if _, err := io.WriteString(conn, command); err != nil {
		conn.Close()
		return fmt.Errorf("send %q: %w", command, err)
	}
	return conn.Close()
}

// ListSerialPorts lists the serial ports visible to the host.
func ListSerialPorts() ([]string, error) {
	return serial.Ports()
}
