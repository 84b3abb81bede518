package pipeline

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// 文档配色主题（与下单表单的 color 选项一致）
var colorThemes = map[string]string{
	"amatista":  "#6a4c93",
	"esmeralda": "#2a9d8f",
	"zafiro":    "#1d3557",
	"rubi":      "#9d0208",
	"grafito":   "#343a40",
}

const defaultTheme = "amatista"

// docData 渲染模板数据
type docData struct {
	Title      string
	AccentHex  string
	TwoColumns bool
	Paragraphs []string
}

var docTemplate = template.Must(template.New("doc").Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  body { font-family: "Georgia", serif; margin: 2.5cm; color: #212529; }
  h1 { color: {{.AccentHex}}; border-bottom: 2px solid {{.AccentHex}}; padding-bottom: 8px; }
  {{if .TwoColumns}}.content { column-count: 2; column-gap: 1.2cm; }{{else}}.content { column-count: 1; }{{end}}
  p { text-align: justify; line-height: 1.5; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="content">
{{range .Paragraphs}}<p>{{.}}</p>
{{end}}</div>
</body>
</html>
`))

// BuildDocumentHTML 将生成的文本排版为可渲染的 HTML 文档
func BuildDocumentHTML(title, text, color, columns string) (string, error) {
	accent, ok := colorThemes[color]
	if !ok {
		accent = colorThemes[defaultTheme]
	}

	paragraphs := make([]string, 0)
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	if len(paragraphs) == 0 {
		return "", fmt.Errorf("document text is empty")
	}

	var buf bytes.Buffer
	err := docTemplate.Execute(&buf, docData{
		Title:      title,
		AccentHex:  accent,
		TwoColumns: columns == "dos",
		Paragraphs: paragraphs,
	})
	if err != nil {
		return "", fmt.Errorf("render document template failed: %w", err)
	}
	return buf.String(), nil
}
