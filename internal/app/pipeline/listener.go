package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// serveLoop accepts connections until ctx is cancelled, handing each one to
// handle on its own goroutine. It returns once every handler has finished.
func serveLoop(ctx context.Context, ln net.Listener, name string, handle func(context.Context, net.Conn)) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				backoff = nextBackoff(backoff)
				time.Sleep(backoff)
				continue
			}
			return fmt.Errorf("%s accept: %w", name, err)
		}
		backoff = 0

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer conn.Close()
			// Unblock reads when the server shuts down.
			stopConn := context.AfterFunc(ctx, func() { _ = conn.Close() })
			defer stopConn()
			handle(ctx, conn)
		}()
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	if d *= 2; d > time.Second {
		d = time.Second
	}
	return d
}

func listen(addr, name string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%s listen %s: %w", name, addr, err)
	}
	return ln, nil
}
