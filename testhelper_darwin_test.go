package taskpool

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// reuseFD duplicates oldfd onto the fd number newfd, closing it at the end
// of the test.
func reuseFD(t *testing.T, oldfd, newfd int) {
	t.Helper()
	require.NoError(t, unix.Dup2(oldfd, newfd))
	unix.CloseOnExec(newfd)
	t.Cleanup(func() { _ = unix.Close(newfd) })
}
