package sshd

import (
	"golang.org/x/crypto/ssh"
)

// MakeNoAuth returns a server config that admits every client. Clients that
// offer a public key get its fingerprint recorded in their permissions.
func MakeNoAuth() *ssh.ServerConfig {
	config := ssh.ServerConfig{
		NoClientAuth: false,
		PublicKeyCallback: func(conn ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			perm := &ssh.Permissions{Extensions: map[string]string{"fingerprint": Fingerprint(key)}}
			return perm, nil
		},
		KeyboardInteractiveCallback: func(conn ssh.ConnMetadata, challenge ssh.KeyboardInteractiveChallenge) (*ssh.Permissions, error) {
			return nil, nil
		},
	}

	return &config
}

// Fingerprint returns the SHA256 fingerprint of a public key.
func Fingerprint(k ssh.PublicKey) string {
	return ssh.FingerprintSHA256(k)
}
