package server

const (
	MsgRunning = "ESP32-CAM YOLO Object Detection API is running!"

	MsgNotAnImage = "File must be an image"

	MsgProcessingError = "Error processing image: "

	MsgFileTooLarge = "File too large"

	MsgBadBody = "There was an error parsing the body"

	MsgInternalError = "Internal Server Error"
)
