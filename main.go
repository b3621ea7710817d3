package main

import (
	cmd "github.com/Tutortoise/object-detection-service/cmd/detect"
)

func main() {
	cmd.Execute()
}
