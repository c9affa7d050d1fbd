package catalog

import (
	"time"

	"github.com/jengzang/cellwatch-backend-go/internal/models"
)

// NoTimestampLabel is displayed when neither the file name nor the
// collection carries a timestamp
const NoTimestampLabel = "no timestamp available"

// DisplayTimestamp formats the timestamp label for a step. Preference
// order: file-name key, timestamp embedded in the collection, fixed
// fallback message.
func DisplayTimestamp(step *models.TimeStep) string {
	if key, ok := TimestampKey(step.FileName); ok {
		if t, err := time.Parse("20060102_1504", key); err == nil {
			return t.Format("2006-01-02 15:04 UTC")
		}
		return key
	}
	if step.Boundary != nil && step.Boundary.Timestamp != "" {
		return step.Boundary.Timestamp
	}
	return NoTimestampLabel
}
