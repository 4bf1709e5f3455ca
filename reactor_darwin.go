//go:build darwin

package taskpool

import (
	"time"

	"golang.org/x/sys/unix"
)

type rawEvent = unix.Kevent_t

// poller wraps a kqueue. Each direction is a separate EV_ONESHOT filter,
// deleted by the kernel once it reports.
type poller struct {
	kq int
}

func (p *poller) init() error {
	kq, err := unix.Kqueue()
	if err != nil {
		return err
	}
	unix.CloseOnExec(kq)
	p.kq = kq
	return nil
}

func (p *poller) close() error {
	return unix.Close(p.kq)
}

func (p *poller) addWake(fd int) error {
	_, err := unix.Kevent(p.kq, []unix.Kevent_t{{
		Ident:  uint64(fd),
		Filter: unix.EVFILT_READ,
		Flags:  unix.EV_ADD | unix.EV_ENABLE,
	}}, nil, nil)
	return err
}

// add is a no-op, filters are added when armed.
func (p *poller) add(int) error { return nil }

func (p *poller) del(fd int, armed IOEvents) error {
	if kevents := eventsToKevents(fd, armed, unix.EV_DELETE); len(kevents) != 0 {
		_, _ = unix.Kevent(p.kq, kevents, nil, nil)
	}
	return nil
}

// arm updates the filters of fd. With refresh, every wanted filter is added
// again, even if believed armed.
func (p *poller) arm(fd int, want, armed IOEvents, refresh bool) (IOEvents, error) {
	if del := armed &^ want; del != 0 {
		// ENOENT if the filter already fired
		_, _ = unix.Kevent(p.kq, eventsToKevents(fd, del, unix.EV_DELETE), nil, nil)
	}
	add := want &^ armed
	if refresh {
		add = want
	}
	if add != 0 {
		if _, err := unix.Kevent(p.kq, eventsToKevents(fd, add, unix.EV_ADD|unix.EV_ENABLE|unix.EV_ONESHOT), nil, nil); err != nil {
			return armed & want, err
		}
	}
	return want, nil
}

func (p *poller) wait(buf []rawEvent, timeout time.Duration) (int, error) {
	var ts *unix.Timespec
	if timeout >= 0 {
		t := unix.NsecToTimespec(int64(timeout))
		ts = &t
	}
	return unix.Kevent(p.kq, nil, buf, ts)
}

func (p *poller) decode(ev *rawEvent) Event {
	return Event{FD: int(ev.Ident), Events: keventToEvents(ev)}
}

// disarmAfter returns the interest still armed after an event fired. Only
// the filter that reported is removed.
func disarmAfter(armed, fired IOEvents) IOEvents {
	return armed &^ (fired & (EventRead | EventWrite))
}

func eventsToKevents(fd int, events IOEvents, flags uint16) []unix.Kevent_t {
	var kevents []unix.Kevent_t
	if events&EventRead != 0 {
		kevents = append(kevents, unix.Kevent_t{
			Ident:  uint64(fd),
			Filter: unix.EVFILT_READ,
			Flags:  flags,
		})
	}
	if events&EventWrite != 0 {
		kevents = append(kevents, unix.Kevent_t{
			Ident:  uint64(fd),
			Filter: unix.EVFILT_WRITE,
			Flags:  flags,
		})
	}
	return kevents
}

func keventToEvents(kev *unix.Kevent_t) IOEvents {
	var events IOEvents
	switch kev.Filter {
	case unix.EVFILT_READ:
		events |= EventRead
	case unix.EVFILT_WRITE:
		events |= EventWrite
	}
	if kev.Flags&unix.EV_ERROR != 0 {
		events |= EventError
	}
	if kev.Flags&unix.EV_EOF != 0 {
		events |= EventHangup
	}
	return events
}

// createWakeFd creates a non-blocking self-pipe, returning the read and
// write ends.
func createWakeFd() (int, int, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return 0, 0, err
	}
	for _, fd := range fds {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			_ = unix.Close(fds[0])
			_ = unix.Close(fds[1])
			return 0, 0, err
		}
	}
	return fds[0], fds[1], nil
}
