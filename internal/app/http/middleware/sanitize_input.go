package middleware

import (
	"bytes"
	"encoding/json"
	"html"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
)

// SanitizeAndCleanInputMiddleware strips markup from every string in a JSON object body,
// nested objects and arrays included. Empty bodies pass through untouched.
func SanitizeAndCleanInputMiddleware() gin.HandlerFunc {
	policy := bluemonday.StrictPolicy()
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost &&
			c.Request.Method != http.MethodPut &&
			c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}

		buf, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid body"})
			return
		}
		if len(bytes.TrimSpace(buf)) == 0 {
			c.Request.Body = io.NopCloser(bytes.NewReader(buf))
			c.Next()
			return
		}

		var body map[string]interface{}
		dec := json.NewDecoder(bytes.NewReader(buf))
		dec.UseNumber()
		if err := dec.Decode(&body); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Malformed JSON"})
			return
		}

		newBody, err := json.Marshal(clean(policy, body))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Malformed JSON"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(newBody))
		c.Request.ContentLength = int64(len(newBody))
		c.Next()
	}
}

// plainText undoes only the escaping the policy applies to text it keeps. &lt; and &gt; stay
// encoded.
var plainText = strings.NewReplacer("&#39;", "'", "&#34;", `"`, "&amp;", "&")

func clean(policy *bluemonday.Policy, v interface{}) interface{} {
	switch t := v.(type) {
	case string:
		// entity-encoded markup is decoded first so the policy sees and strips it
		return plainText.Replace(policy.Sanitize(html.UnescapeString(t)))
	case map[string]interface{}:
		for k, inner := range t {
			t[k] = clean(policy, inner)
		}
		return t
	case []interface{}:
		for i, inner := range t {
			t[i] = clean(policy, inner)
		}
		return t
	default:
		return v
	}
}
