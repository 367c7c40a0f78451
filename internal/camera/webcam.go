//go:build gocv

package camera

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// Webcam reads frames from an OpenCV capture device.
type Webcam struct {
	vc  *gocv.VideoCapture
	img gocv.Mat
}

// Open opens the capture device with the given index.
func Open(device int) (Source, error) {
	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("%w: device %d: %v", ErrUnavailable, device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: device %d not opened", ErrUnavailable, device)
	}
	return &Webcam{vc: vc, img: gocv.NewMat()}, nil
}

// Read grabs and JPEG-encodes one frame.
func (w *Webcam) Read() ([]byte, error) {
	if ok := w.vc.Read(&w.img); !ok || w.img.Empty() {
		return nil, errors.New("camera: empty frame")
	}
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, w.img)
	if err != nil {
		return nil, fmt.Errorf("camera: encoding frame: %w", err)
	}
	defer buf.Close()

	// The native buffer is freed on Close; keep a Go-owned copy.
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// Close releases the device.
func (w *Webcam) Close() error {
	_ = w.img.Close()
	return w.vc.Close()
}
