package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/awnumar/memguard"
	"golang.org/x/term"

	"github.com/gatehouse-dev/gatehouse/client"
	"github.com/gatehouse-dev/gatehouse/flow"
)

// stdin is shared by every prompt in a command invocation so input
// buffered past one newline is still there for the next read.
var stdin = bufio.NewReader(os.Stdin)

// promptLine reads one line from stdin.
func promptLine(label string) (string, error) {
	fmt.Printf("%s: ", label)
	line, err := stdin.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads a password without echo into a locked buffer. The
// caller destroys the buffer as soon as the password has been used.
func promptPassword(label string) (*memguard.LockedBuffer, error) {
	fmt.Printf("%s: ", label)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return nil, err
	}
	return memguard.NewBufferFromBytes(raw), nil
}

// asDisplayError converts a flow error into the message shown to the
// terminal user: validation messages verbatim, server messages when
// present, the generic fallback otherwise.
func asDisplayError(err error) error {
	switch {
	case err == nil:
		return nil
	case flow.IsFieldError(err):
		return errors.New(err.Error())
	case errors.Is(err, flow.ErrTwoFactorNotEnabled):
		return errors.New("two-factor authentication is not enabled")
	case errors.Is(err, flow.ErrNoPendingLogin):
		return errors.New("no login challenge in progress")
	default:
		return errors.New(client.Message(err))
	}
}
