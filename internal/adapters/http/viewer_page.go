package httpadapter

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"

	"github.com/kirillkom/aps-model-browser/internal/core/domain"
)

const viewerCDN = "https://developer.api.autodesk.com/modelderivative/v2/viewers/7.*"

var viewerPageTemplate = template.Must(template.New("viewer").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<link rel="stylesheet" href="{{.CDN}}/style.min.css" type="text/css">
<style>body, html { margin: 0; padding: 0; width: 100%; height: 100%; overflow: hidden; } #viewerContainer { width: 100%; height: 100%; }</style>
</head>
<body>
<div id="viewerContainer"></div>
<script src="{{.CDN}}/viewer3D.min.js"></script>
<script>
  const accessToken = {{.AccessToken}};
  const documentId = {{.DocumentID}};
  const role = {{.Role}};
  const theme = {{.Theme}};
  let viewer;

  function onDocumentLoadSuccess(doc) {
    const viewables = doc.getRoot().search({ type: "geometry", role: role });
    if (viewables.length === 0) {
      alert({{.MissingMessage}});
      return;
    }
    viewer.loadDocumentNode(doc, viewables[0]);
  }

  function onDocumentLoadFailure(code) {
    console.error("document load failed: " + code);
  }

  Autodesk.Viewing.Initializer({ env: "AutodeskProduction", accessToken: accessToken }, () => {
    viewer = new Autodesk.Viewing.GuiViewer3D(document.getElementById("viewerContainer"));
    viewer.start();
    viewer.setTheme(theme.name);
    if (theme.light_preset) { viewer.setLightPreset(theme.light_preset); }
    if (theme.env_map_background) { viewer.setEnvMapBackground(true); }
    if (theme.swap_black_and_white) { viewer.prefs.set("swapBlackAndWhite", true); }
    Autodesk.Viewing.Document.load(documentId, onDocumentLoadSuccess, onDocumentLoadFailure);
  });
</script>
</body>
</html>
`))

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Model browser</title></head>
<body>
<h1>Model browser</h1>
<p>Page state: <a href="/ui/state">/ui/state</a>, live updates: /ui/stream</p>
<p>3D models: /view3d/&lt;urn&gt;</p>
<p>2D sheets: /view2d/&lt;urn&gt;</p>
</body>
</html>
`))

type viewerPage struct {
	Title          string
	CDN            string
	AccessToken    string
	DocumentID     string
	Role           string
	Theme          domain.ViewerTheme
	MissingMessage string
}

func newViewerPage(role domain.ViewerRole, urn, token string) viewerPage {
	title := "3D Viewer"
	if role == domain.Role2D {
		title = "2D Viewer"
	}
	return viewerPage{
		Title:          title,
		CDN:            viewerCDN,
		AccessToken:    token,
		DocumentID:     domain.EngineDocumentID(urn),
		Role:           string(role),
		Theme:          domain.ThemeFor(role),
		MissingMessage: "No " + strings.ToUpper(string(role)) + " view found for this URN.",
	}
}

func (rt *Router) viewerHandler(role domain.ViewerRole) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		urn := strings.TrimSpace(r.PathValue("urn"))
		if urn == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "urn is required"})
			return
		}
		if rt.tokens == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "viewer credentials are not configured"})
			return
		}

		token, err := rt.tokens.Token(r.Context())
		if err != nil {
			rt.logger.Error("viewer_page_token_failed",
				"request_id", requestIDFromContext(r.Context()),
				"role", string(role),
				"error", err,
			)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Could not obtain an access token."})
			return
		}

		var buf bytes.Buffer
		if err := viewerPageTemplate.Execute(&buf, newViewerPage(role, urn, token.Value)); err != nil {
			writeError(w, err)
			return
		}
		writeHTML(w, buf.Bytes())
	}
}

func (rt *Router) index(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, nil); err != nil {
		writeError(w, err)
		return
	}
	writeHTML(w, buf.Bytes())
}

func writeHTML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
