package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Camera is a FrameSource backed by a local video capture device.
type Camera struct {
	cap *gocv.VideoCapture
}

// OpenCamera opens the capture device with the given id (0 is the default
// webcam). Returns an error wrapping ErrDeviceUnavailable when the device
// cannot be opened.
func OpenCamera(deviceID int) (*Camera, error) {
	cap, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, fmt.Errorf("%w: device %d: %v", ErrDeviceUnavailable, deviceID, err)
	}

	if !cap.IsOpened() {
		_ = cap.Close()
		return nil, fmt.Errorf("%w: device %d", ErrDeviceUnavailable, deviceID)
	}

	return &Camera{cap: cap}, nil
}

func (c *Camera) Read() (*Frame, error) {
	mat := gocv.NewMat()
	defer mat.Close()

	if ok := c.cap.Read(&mat); !ok || mat.Empty() {
		return nil, fmt.Errorf("%w", ErrDeviceRead)
	}

	// Mirror the frame so on-screen movement matches the subject's.
	gocv.Flip(mat, &mat, 1)

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	colorImg, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}

	grayImg, err := gray.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert grayscale frame: %w", err)
	}

	rgba, ok := colorImg.(*image.RGBA)
	if !ok {
		return nil, fmt.Errorf("unexpected frame format %T", colorImg)
	}

	g, ok := grayImg.(*image.Gray)
	if !ok {
		return nil, fmt.Errorf("unexpected grayscale format %T", grayImg)
	}

	return &Frame{Image: rgba, Gray: g}, nil
}

func (c *Camera) Close() error {
	return c.cap.Close()
}
