package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const openAPI = `openapi: 3.0.3
info:
  title: askweb
  version: "1.0"
paths:
  /new-chat:
    post:
      summary: Start a new chat session
      responses:
        "200": {description: session created}
  /query:
    post:
      summary: Ask a question
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              required: [query]
              properties:
                query: {type: string}
                session_id: {type: string}
      responses:
        "200": {description: answer with history, session id, search flag and context preview}
        "400": {description: missing query or malformed body}
        "404": {description: no links, content or documents found}
        "502": {description: upstream failure}
        "504": {description: upstream timeout}
  /clear:
    post:
      summary: Clear a session's history and index
      responses:
        "200": {description: cleared}
        "404": {description: unknown session}
  /sessions:
    get:
      summary: List live sessions
      responses:
        "200": {description: sessions and total}
  /delete-session:
    post:
      summary: Delete a session
      responses:
        "200": {description: deleted}
        "400": {description: no session_id}
        "404": {description: unknown session}
`

// registerDocs registers the OpenAPI document and a docs UI.
func registerDocs(e *echo.Echo) {
	e.GET("/api/openapi.yaml", func(c echo.Context) error {
		return c.Blob(http.StatusOK, "application/yaml", []byte(openAPI))
	})

	// Simple ReDoc page
	e.GET("/api/docs", func(c echo.Context) error {
		html := `<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>askweb API Docs</title>
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <style>body{margin:0;padding:0;} .redoc-wrap{height:100vh;}</style>
  </head>
  <body>
    <div id="redoc-container" class="redoc-wrap"></div>
    <script src="https://cdn.jsdelivr.net/npm/redoc/bundles/redoc.standalone.js"></script>
    <script>
      Redoc.init('/api/openapi.yaml', {}, document.getElementById('redoc-container'))
    </script>
  </body>
</html>`
		return c.HTML(http.StatusOK, html)
	})
}
