//go:build linux

package taskpool

import (
	"time"

	"golang.org/x/sys/unix"
)

type rawEvent = unix.EpollEvent

// poller wraps an epoll instance. Interest is armed with EPOLLONESHOT, so
// each fd is disabled after reporting until it is armed again.
type poller struct {
	epfd int
}

func (p *poller) init() error {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return err
	}
	p.epfd = epfd
	return nil
}

func (p *poller) close() error {
	return unix.Close(p.epfd)
}

// addWake registers the wake fd, level triggered.
func (p *poller) addWake(fd int) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(fd),
	})
}

// add registers fd with nothing armed.
func (p *poller) add(fd int) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
		Events: unix.EPOLLONESHOT,
		Fd:     int32(fd),
	})
}

func (p *poller) del(fd int, _ IOEvents) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// arm replaces the interest set of fd.
func (p *poller) arm(fd int, want, _ IOEvents, _ bool) (IOEvents, error) {
	ev := unix.EpollEvent{
		Events: eventsToEpoll(want) | unix.EPOLLONESHOT,
		Fd:     int32(fd),
	}
	err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
	if err == unix.ENOENT {
		// closed and reopened since registration
		err = unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
	}
	if err != nil {
		return 0, err
	}
	return want, nil
}

func (p *poller) wait(buf []rawEvent, timeout time.Duration) (int, error) {
	return unix.EpollWait(p.epfd, buf, waitMillis(timeout))
}

func (p *poller) decode(ev *rawEvent) Event {
	return Event{FD: int(ev.Fd), Events: epollToEvents(ev.Events)}
}

// disarmAfter returns the interest still armed after an event fired.
func disarmAfter(IOEvents, IOEvents) IOEvents {
	return 0
}

func eventsToEpoll(events IOEvents) uint32 {
	var epollEvents uint32
	if events&EventRead != 0 {
		epollEvents |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if events&EventWrite != 0 {
		epollEvents |= unix.EPOLLOUT
	}
	return epollEvents
}

func epollToEvents(epollEvents uint32) IOEvents {
	var events IOEvents
	if epollEvents&unix.EPOLLIN != 0 {
		events |= EventRead
	}
	if epollEvents&unix.EPOLLOUT != 0 {
		events |= EventWrite
	}
	if epollEvents&unix.EPOLLERR != 0 {
		events |= EventError
	}
	if epollEvents&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0 {
		events |= EventHangup
	}
	return events
}

// createWakeFd creates a non-blocking eventfd, used as both ends.
func createWakeFd() (int, int, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	return fd, fd, err
}
