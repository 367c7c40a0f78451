//go:build !gocv

package camera

import "fmt"

// Open always fails: this binary was built without the gocv tag.
func Open(device int) (Source, error) {
	return nil, fmt.Errorf("%w: device %d (built without gocv)", ErrUnavailable, device)
}
