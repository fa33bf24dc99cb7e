package handler

import (
"bytes"
"encoding/json"
"html/template"
"net/http"

"github.com/gin-gonic/gin"
)

var swaggerPage = template.Must(template.New("swagger").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: {{.SpecURL}},
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`))

// DocsHandler serves the OpenAPI document and a Swagger UI page for it.
type DocsHandler struct {
spec []byte
page []byte
}

// NewDocsHandler renders the UI page once. A nil spec still serves the page;
// the document route then reports 404.
func NewDocsHandler(spec []byte, specURL string) *DocsHandler {
// json.Marshal escapes <, > and & so the literal cannot close the script.
quoted, _ := json.Marshal(specURL)
var buf bytes.Buffer
_ = swaggerPage.Execute(&buf, struct {
Title   string
SpecURL template.JS
}{"Casino Ledger - API Docs", template.JS(quoted)})
return &DocsHandler{spec: spec, page: buf.Bytes()}
}

// UI handles GET /swagger.
func (h *DocsHandler) UI(c *gin.Context) {
c.Data(http.StatusOK, "text/html; charset=utf-8", h.page)
}

// Spec handles GET /swagger/spec.
func (h *DocsHandler) Spec(c *gin.Context) {
if len(h.spec) == 0 {
c.String(http.StatusNotFound, "OpenAPI spec not loaded")
return
}
c.Data(http.StatusOK, "application/x-yaml", h.spec)
}
