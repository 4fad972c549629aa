package export

import (
	"bytes"
	"html/template"
)

var bookTemplate = template.Must(template.New("book").Funcs(template.FuncMap{
	"opacityCSS": func(pct int) float64 { return float64(pct) / 100 },
}).Parse(bookTemplateHTML))

// RenderBookHTML renders the printable HTML for a book.
func RenderBookHTML(data BookData) (string, error) {
	var buf bytes.Buffer
	if err := bookTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const bookTemplateHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Arial, sans-serif; margin: 0; }
    .page { page-break-after: always; padding: 1rem; }
    .page-label { color: #666; font-size: 0.8em; margin-bottom: 0.5rem; }
    .grid { display: grid; grid-template-columns: repeat({{.Cols}}, 1fr); gap: 0.5rem; }
    .slot { border: 1px dashed #ccc; aspect-ratio: 63/88; position: relative; overflow: hidden; }
    .slot img { width: 100%; height: 100%; object-fit: cover; }
    .filter { position: absolute; inset: 0; }
    .caption { position: absolute; bottom: 0; left: 0; right: 0; background: rgba(255,255,255,0.85);
               font-size: 0.7em; padding: 2px 4px; }
    .tags { color: #1976d2; }
    h1 { font-size: 1.2em; padding: 1rem 1rem 0; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  {{range .Pages}}
  <div class="page">
    {{if .Label}}<div class="page-label">{{.Label}}</div>{{end}}
    <div class="grid">
      {{range .Slots}}
      <div class="slot">
        {{if not .Empty}}
          {{if and .ShowImage .ImageURL}}<img src="{{.ImageURL}}" alt="">{{end}}
          {{if .FilterEnabled}}<div class="filter" style="background:{{.FilterColor}};opacity:{{opacityCSS .FilterOpacity}}"></div>{{end}}
          {{if or .Caption .Tags}}
          <div class="caption">{{.Caption}}{{if .Tags}} <span class="tags">{{.Tags}}</span>{{end}}</div>
          {{end}}
        {{end}}
      </div>
      {{end}}
    </div>
  </div>
  {{end}}
</body>
</html>`
