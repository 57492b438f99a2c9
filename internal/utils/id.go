package utils

import (
	"path"
	"time"

	"github.com/google/uuid"
)

// ObjectKey builds a collision-free storage key for an exported report,
// grouped by day: <prefix>/<yyyy-mm-dd>/<uuid>_<name>.
func ObjectKey(prefix, name string, now time.Time) string {
	return path.Join(prefix, now.Format("2006-01-02"), uuid.NewString()+"_"+path.Base(name))
}
