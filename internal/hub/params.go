package hub

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

func parsePID(c *gin.Context) (int, bool) {
	raw := c.Param("pid")
	pid, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return pid, true
}

func parseUnixSeconds(raw string) (time.Time, bool) {
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(sec, 0).UTC(), true
}
