package sshd

import (
	"fmt"
	"os"

	gliderssh "github.com/gliderlabs/ssh"
	gossh "golang.org/x/crypto/ssh"
)

// LoadHostKeys parses the PEM or OpenSSH private keys in paths.
func LoadHostKeys(paths []string) ([]gliderssh.Signer, error) {
	signers := make([]gliderssh.Signer, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read host key %s: %w", path, err)
		}
		signer, err := gossh.ParsePrivateKey(data)
		if err != nil {
			return nil, fmt.Errorf("parse host key %s: %w", path, err)
		}
		signers = append(signers, signer)
	}
	return signers, nil
}
