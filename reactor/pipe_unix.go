//go:build linux || darwin || freebsd || netbsd || openbsd

// File: reactor/pipe_unix.go
// Author: momentics <momentics@gmail.com>
//
// Self-pipe helpers shared by the epoll and kqueue adapters, used to turn
// the cross-thread wakeup primitive into an ordinary readable
// fd the poller already watches.

package reactor

import "golang.org/x/sys/unix"

func mkPipe() ([2]int, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		return fds, err
	}
	return fds, nil
}

func drainPipe(fd int) {
	var buf [64]byte
	for {
		n, err := unix.Read(fd, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

func wakePipe(fd int) error {
	_, err := unix.Write(fd, []byte{0})
	if err != nil && err != unix.EAGAIN {
		return err
	}
	return nil
}
