package remote

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrNoToken is returned when no token file exists and no terminal is attached.
var ErrNoToken = errors.New("no access token available")

// Prompter asks the user for a secret.
type Prompter func(label string) (string, error)

// TerminalPrompt reads a secret from the controlling terminal without echo.
func TerminalPrompt(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", ErrNoToken
	}
	fmt.Fprintf(os.Stderr, "%s: ", label)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", label, err)
	}
	return strings.TrimSpace(string(secret)), nil
}

// ReadToken returns the first line of the token file at path. When the file
// does not exist the prompter is asked instead.
func ReadToken(path, platform string, prompt Prompter) (string, error) {
	if path != "" {
		token, err := readTokenFile(path)
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
	}
	if prompt == nil {
		return "", ErrNoToken
	}
	return prompt(platform + " personal access token")
}

func readTokenFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("reading token file %s: %w", path, err)
		}
		return "", fmt.Errorf("token file %s is empty", path)
	}
	return strings.TrimRight(scanner.Text(), "\r"), nil
}
