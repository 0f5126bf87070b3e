package handler

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
)

var aboutTemplate = template.Must(template.New("about").Parse(`<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<main>
<h1>{{.Title}}</h1>
<p>Access is limited to members of approved organisations. Enter your work email to receive a sign-in link.</p>
<form id="login" method="post" action="/api/auth/request">
<input type="email" name="email" required placeholder="you@organisation.org">
<button type="submit">Send sign-in link</button>
</form>
</main>
</body>
</html>
`))

type PageHandler struct {
	siteTitle string
}

func NewPageHandler(siteTitle string) *PageHandler {
	return &PageHandler{siteTitle: siteTitle}
}

// GET /about
// The public landing page, and the gate's redirect target.
func (h *PageHandler) About(c *gin.Context) {
	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	_ = aboutTemplate.Execute(c.Writer, struct{ Title string }{h.siteTitle})
}
