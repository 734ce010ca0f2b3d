package safe

import (
	"fmt"
)

// Go starts a new goroutine that recovers from panic,
// so that a handler panic doesn't take down the gateway process.
func Go(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				fmt.Printf("[safe.Go] panic recovered: %v\n", r)
			}
		}()
		f()
	}()
}
