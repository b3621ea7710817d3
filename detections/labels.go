package detections

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	ort "github.com/yalue/onnxruntime_go"
)

// COCOLabels are the 80 class names of the COCO dataset, in class id order.
var COCOLabels = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat",
	"dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack",
	"umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball",
	"kite", "baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket",
	"bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair",
	"couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink",
	"refrigerator", "book", "clock", "vase", "scissors", "teddy bear", "hair drier",
	"toothbrush",
}

const namesMetadataKey = "names"

// readClassNames returns the class names stored in the model's custom
// metadata, or nil when the model carries none.
func readClassNames(modelPath string) ([]string, error) {
	md, err := ort.GetModelMetadata(modelPath)
	if err != nil {
		return nil, fmt.Errorf("error reading model metadata: %w", err)
	}
	defer md.Destroy()

	raw, ok, err := md.LookupCustomMetadataMap(namesMetadataKey)
	if err != nil {
		return nil, fmt.Errorf("error looking up %q metadata: %w", namesMetadataKey, err)
	}
	if !ok {
		return nil, nil
	}
	return ParseClassNames(raw)
}

// ParseClassNames parses the class table written by YOLO exporters, a
// dictionary literal such as {0: 'person', 1: "traffic light"}. Ids must
// cover 0..n-1.
func ParseClassNames(raw string) ([]string, error) {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return nil, errors.New("class names: expected a dictionary literal")
	}
	s = s[1 : len(s)-1]

	byID := make(map[int]string)
	for i := 0; i < len(s); {
		i = skipSpace(s, i)
		if i >= len(s) {
			break
		}

		colon := strings.IndexByte(s[i:], ':')
		if colon < 0 {
			return nil, fmt.Errorf("class names: missing ':' at offset %d", i)
		}
		id, err := strconv.Atoi(strings.TrimSpace(s[i : i+colon]))
		if err != nil {
			return nil, fmt.Errorf("class names: bad id: %w", err)
		}
		i = skipSpace(s, i+colon+1)

		name, next, err := readQuoted(s, i)
		if err != nil {
			return nil, err
		}
		if _, dup := byID[id]; dup {
			return nil, fmt.Errorf("class names: duplicate id %d", id)
		}
		byID[id] = name

		i = skipSpace(s, next)
		if i < len(s) {
			if s[i] != ',' {
				return nil, fmt.Errorf("class names: expected ',' at offset %d", i)
			}
			i++
		}
	}

	names := make([]string, len(byID))
	for id, name := range byID {
		if id < 0 || id >= len(names) {
			return nil, fmt.Errorf("class names: ids are not contiguous (found %d of %d)", id, len(names))
		}
		names[id] = name
	}
	return names, nil
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return i
}

func readQuoted(s string, i int) (string, int, error) {
	if i >= len(s) || (s[i] != '\'' && s[i] != '"') {
		return "", i, fmt.Errorf("class names: expected quoted name at offset %d", i)
	}
	quote := s[i]

	var b strings.Builder
	for j := i + 1; j < len(s); j++ {
		switch c := s[j]; {
		case c == '\\' && j+1 < len(s):
			j++
			b.WriteByte(s[j])
		case c == quote:
			return b.String(), j + 1, nil
		default:
			b.WriteByte(c)
		}
	}
	return "", len(s), errors.New("class names: unterminated string")
}
