package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/howeyc/gopass"
	"golang.org/x/crypto/ssh"
)

// ReadPrivateKey reads the host key at path, decrypting it if needed. The
// passphrase comes from IDENTITY_PASSPHRASE or is prompted for on STDIN.
func ReadPrivateKey(path string) (ssh.Signer, error) {
	privateKey, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(privateKey)
	var missing *ssh.PassphraseMissingError
	if !errors.As(err, &missing) {
		return signer, err
	}

	passphrase := []byte(os.Getenv("IDENTITY_PASSPHRASE"))
	if len(passphrase) == 0 {
		fmt.Print("Enter passphrase: ")
		passphrase, err = gopass.GetPasswd()
		if err != nil {
			return nil, fmt.Errorf("couldn't read passphrase: %w", err)
		}
	}
	return ssh.ParsePrivateKeyWithPassphrase(privateKey, passphrase)
}
