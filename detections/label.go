package detections

import "fmt"

// FormatLabel renders "<name>: <confidence as a percentage with two decimals>%".
func FormatLabel(name string, confidence float32) string {
	return fmt.Sprintf("%s: %.2f%%", name, float64(confidence)*100)
}
