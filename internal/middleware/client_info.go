package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/mssola/user_agent"
)

// ClientInfo is the request attribution recorded on audit rows
type ClientInfo struct {
	IPAddress string
	UserAgent string
	Browser   string
	OS        string
	Mobile    bool
}

// ExtractClientInfo parses the caller's address and user agent from the
// request
func ExtractClientInfo(c *gin.Context) ClientInfo {
	rawUA := c.GetHeader("User-Agent")
	ua := user_agent.New(rawUA)
	browser, _ := ua.Browser()

	return ClientInfo{
		IPAddress: c.ClientIP(),
		UserAgent: rawUA,
		Browser:   browser,
		OS:        ua.OS(),
		Mobile:    ua.Mobile(),
	}
}
