package detections

const (
	// Network input geometry and the affine transform applied to every pixel:
	// value = (pixel - Mean) * Scale.
	InputWidth  = 300
	InputHeight = 300
	Scale       = 1 / 127.5
	Mean        = 127.5
	// SwapRB reorders the camera's BGR channels into the RGB order the network expects.
	SwapRB = true

	// Each result row is [image_id, class_id, confidence, x1, y1, x2, y2].
	RowWidth = 7

	DefaultThreshold = 0.2

	LabelOffset   = 15
	BoxThickness  = 2
	FontScale     = 0.5
	TextThickness = 2
)
