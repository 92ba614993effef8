package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/chacrab/chacrab/pkg/crypto"
	"github.com/chacrab/chacrab/pkg/errdefs"
)

var stdinReader = bufio.NewReader(os.Stdin)

func promptInput(label string) (string, error) {
	fmt.Printf("%s: ", label)
	line, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", errdefs.Config("unable to read input")
	}
	return strings.TrimSpace(line), nil
}

func promptOptionalInput(label string) (*string, error) {
	value, err := promptInput(label + " (optional)")
	if err != nil {
		return nil, err
	}
	if value == "" {
		return nil, nil
	}
	return &value, nil
}

func promptConfirm(label string) (bool, error) {
	value, err := promptInput(label + " [y/N]")
	if err != nil {
		return false, err
	}
	return strings.EqualFold(value, "y") || strings.EqualFold(value, "yes"), nil
}

// promptPassword reads a password without echo. The returned string should
// be handed to the crypto layer and forgotten as quickly as possible.
func promptPassword(label string) (string, error) {
	fmt.Printf("%s: ", label)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", errdefs.Config("unable to read password")
	}
	password := string(raw)
	crypto.Wipe(raw)
	return password, nil
}

func promptPasswordWithConfirmation(label, confirmLabel string) (string, error) {
	first, err := promptPassword(label)
	if err != nil {
		return "", err
	}
	second, err := promptPassword(confirmLabel)
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errdefs.Config("password confirmation did not match")
	}
	return first, nil
}

// insecureTerminal reports whether stdout is redirected; secret reveal and
// clipboard actions are refused in that case.
func insecureTerminal() bool {
	return !term.IsTerminal(int(os.Stdout.Fd()))
}

func clearScreen() {
	if insecureTerminal() {
		return
	}
	fmt.Print("\x1B[2J\x1B[1;1H")
}
