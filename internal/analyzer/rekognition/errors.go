package rekognition

import "errors"

var (
	// ErrInvalidCredentials indicates that AWS credentials are invalid or missing
	ErrInvalidCredentials = errors.New("invalid or missing AWS credentials")

	// ErrImageTooLarge indicates the payload exceeds the DetectFaces byte limit
	ErrImageTooLarge = errors.New("image exceeds rekognition size limit")

	// ErrImageRejected indicates Rekognition refused an image that decoded locally
	ErrImageRejected = errors.New("image rejected by rekognition")
)
