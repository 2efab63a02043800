package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
// Tests replace it with a stub so they never touch the terminal.
var readPassword = term.ReadPassword

// GetSimpleText prints a prompt to w and reads a single line of input from
// reader. Surrounding whitespace, including the trailing newline, is trimmed.
// If EOF occurs after some input was read, the partial line is returned;
// EOF on an empty line is returned as io.EOF.
//
// Example prompt format:
//
//	Product ID
//	> _
func GetSimpleText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n> "); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// GetPassword prints a password prompt to w and reads a password from the
// terminal (stdin) without echo. A newline is printed after the read so the
// next prompt starts on its own line, even when the read fails.
//
// The returned byte slice holds the plain password; the caller should wipe it
// with common.WipeByteArray once it has been used.
func GetPassword(w io.Writer) ([]byte, error) {
	if _, err := fmt.Fprint(w, "Enter password: "); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

// GetMetadata prints an instruction to w and reads metadata lines in
// "name=value" form, one per line, until an empty line or EOF. Trailing
// "\r\n" is stripped from each line.
//
// The raw lines are returned unchanged. Validation and parsing are left to
// the caller (see models.MetadataFromString).
//
// Example session:
//
//	Enter metadata in the format name=value (empty line to finish)
//	edition=first
//	lang=en
//	<empty line>
func GetMetadata(reader *bufio.Reader, w io.Writer) ([]string, error) {
	if _, err := fmt.Fprintln(w, "Enter metadata in the format name=value (empty line to finish)"); err != nil {
		return nil, err
	}

	lines := make([]string, 0)
	for {
		line, err := reader.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		lines = append(lines, line)
		if err != nil {
			break
		}
	}
	return lines, nil
}
