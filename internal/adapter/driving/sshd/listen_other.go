//go:build !(linux || darwin || dragonfly || freebsd || netbsd || openbsd)

package sshd

import "net"

func listenConfig() net.ListenConfig {
	return net.ListenConfig{}
}
