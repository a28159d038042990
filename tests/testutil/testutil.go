// Package testutil holds the fixtures shared by the ledger's tests: throwaway
// databases, gin request contexts and API envelope assertions.
package testutil

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// NewTestUUID derives a stable ID from seed, so fixtures can refer to each
// other by name.
func NewTestUUID(seed string) uuid.UUID {
	return uuid.NewSHA1(testNamespace, []byte(seed))
}

// Date is midnight UTC on the given day, the shape batch entry dates take
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
