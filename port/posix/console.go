package posix

import (
	"bufio"
	"os"
	"os/exec"

	"github.com/creack/pty"
)

// Console is a pty-backed stand-in for a target board's UART/console
// device: a demo task can Pend on a queue that Console's reader
// goroutine Posts into, exercising the same queue API a real serial
// ISR would drive (spec.md §3's "async sources feed the kernel via
// Post/PendAbort").
type Console struct {
	pty *os.File
	cmd *exec.Cmd
}

// OpenConsole starts cmdName (e.g. "cat", or a real target's console
// bridge) attached to a pty, and returns a line-oriented reader plus
// the write side for echoing kernel output back to it.
func OpenConsole(cmdName string, args ...string) (*Console, *bufio.Scanner, error) {
	cmd := exec.Command(cmdName, args...)
	f, err := pty.Start(cmd)
	if err != nil {
		return nil, nil, err
	}
	return &Console{pty: f, cmd: cmd}, bufio.NewScanner(f), nil
}

func (c *Console) Write(p []byte) (int, error) {
	return c.pty.Write(p)
}

func (c *Console) Close() error {
	c.pty.Close()
	return c.cmd.Wait()
}
