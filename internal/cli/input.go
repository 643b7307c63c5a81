package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"golang.org/x/term"
)

// readPassword and isTerminal are test seams for the terminal.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

// GetSimpleText prints a prompt to w and reads a single line of input from reader.
// The line is trimmed. If EOF occurs after some input was read, the partial
// line is returned.
//
// Example prompt format:
//
//	Prompt text
//	> _
func GetSimpleText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n> "); err != nil {
		return "", err
	}
	return readLine(reader, strings.TrimSpace)
}

// GetPassword prints prompt to w and reads a secret. On a terminal it is read
// without echo; otherwise the next line of reader is used as is, minus the
// line ending.
func GetPassword(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+": "); err != nil {
		return "", err
	}

	fd := int(os.Stdin.Fd())
	if !isTerminal(fd) {
		return readLine(reader, func(s string) string { return strings.TrimRight(s, "\r\n") })
	}

	pw, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(pw)
	return string(pw), nil
}

// GetNewPassword asks for a password twice.
func GetNewPassword(reader *bufio.Reader, w io.Writer) (string, string, error) {
	pw, err := GetPassword(reader, "New password", w)
	if err != nil {
		return "", "", err
	}
	confirm, err := GetPassword(reader, "Confirm password", w)
	if err != nil {
		return "", "", err
	}
	return pw, confirm, nil
}

// Confirm asks a yes/no question; anything but y or yes means no.
func Confirm(reader *bufio.Reader, prompt string, w io.Writer) (bool, error) {
	answer, err := GetSimpleText(reader, prompt+" [y/N]", w)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func readLine(reader *bufio.Reader, clean func(string) string) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return clean(line), nil
		}
		return "", err
	}
	return clean(line), nil
}

// describe turns an error into a message for the user.
func describe(err error) string {
	switch {
	case errors.Is(err, common.ErrLocked):
		return "the vault is locked, type 'unlock' first"
	case errors.Is(err, common.ErrNoVault):
		return "no vault exists yet, type 'setup' to create one"
	case errors.Is(err, common.ErrCapacity):
		return "too many attempts, try again later"
	case errors.Is(err, common.ErrDecryption):
		return "stored data could not be decrypted; the vault stays locked"
	}
	return err.Error()
}

// mask hides all but the last two characters of a secret.
func mask(s string) string {
	r := []rune(s)
	if len(r) <= 2 {
		return strings.Repeat("*", len(r))
	}
	return strings.Repeat("*", len(r)-2) + string(r[len(r)-2:])
}
