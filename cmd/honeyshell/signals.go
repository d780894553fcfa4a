package main

import "os"

// watchSignals calls onFirst for the first signal received on sigs and
// onSecond for the next one. It returns after the second signal or when done
// is closed.
func watchSignals(sigs <-chan os.Signal, done <-chan struct{}, onFirst, onSecond func(os.Signal)) {
	select {
	case sig := <-sigs:
		onFirst(sig)
	case <-done:
		return
	}

	select {
	case sig := <-sigs:
		onSecond(sig)
	case <-done:
	}
}
