package handler

import (
	"context"
	"encoding/base64"
	"html/template"
	"net/http"
	"time"

	"t5index/internal/render"
	"t5index/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const dashboardHTML = `{{define "dashboard"}}<!doctype html>
<html>
<head><meta charset="utf-8"><title>T5 Index</title></head>
<body>
<h1>T5 Index</h1>
<p>{{.Title}}</p>
<form method="get" action="/">
  <label>Start <input type="date" name="start" value="{{.Start}}"></label>
  <label>End <input type="date" name="end" value="{{.End}}"></label>
  <label>Source
    <select name="source">
    {{range .Sources}}<option value="{{.Name}}"{{if eq .Name $.Source}} selected{{end}}>{{.Name}} (max {{.MaxLookbackDays}} days)</option>
    {{end}}</select>
  </label>
  <button type="submit">Build</button>
</form>
{{if .Error}}
<p class="error">{{.Error}}</p>
{{else}}
<img alt="T5 index chart" src="{{.Chart}}">
<p>{{.Summary}}</p>
{{range .Assets}}
<h2>{{.Symbol}}</h2>
<table>
  <tr><th colspan="2">First {{len .Head}} rows</th></tr>
  {{range .Head}}<tr><td>{{date .Time}}</td><td>{{price .Price}}</td></tr>
  {{end}}
</table>
<table>
  <tr><th colspan="2">Last {{len .Tail}} rows</th></tr>
  {{range .Tail}}<tr><td>{{date .Time}}</td><td>{{price .Price}}</td></tr>
  {{end}}
</table>
{{end}}
{{end}}
</body>
</html>
{{end}}`

var dashboardTemplate = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"date":  func(t time.Time) string { return t.UTC().Format("2006-01-02") },
	"price": render.FormatPrice,
}).Parse(dashboardHTML))

type dashboardPage struct {
	Title   string
	Start   string
	End     string
	Source  string
	Sources []service.SourceInfo
	Error   string
	Chart   template.URL
	Summary string
	Assets  []assetRows
}

// Dashboard godoc
// @Summary      HTML dashboard
// @Description  Date inputs, source selector, index chart and per-asset rows
// @Tags         dashboard
// @Produce      html
// @Param        source  query  string  false  "Data source (coingecko, yahoo)"
// @Param        start   query  string  false  "Start date YYYY-MM-DD"
// @Param        end     query  string  false  "End date YYYY-MM-DD"
// @Success      200  {string}  string
// @Router       / [get]
func (h *Handler) Dashboard(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.dashboard")
	defer span.End()

	weights := h.indexService.Weights()
	page := dashboardPage{
		Title:   weights.Title(),
		Source:  c.DefaultQuery("source", h.indexService.DefaultSource()),
		Sources: h.indexService.Sources(),
		Start:   c.Query("start"),
		End:     c.Query("end"),
	}

	status, err := h.fillDashboard(ctx, c, &page)
	if err != nil {
		log.Debug().Err(err).Msg("dashboard build failed")
		page.Error = err.Error()
	}
	c.HTML(status, "dashboard", page)
}

func (h *Handler) fillDashboard(ctx context.Context, c *gin.Context, page *dashboardPage) (int, error) {
	req, err := h.indexRequest(c)
	if err != nil {
		return buildStatus(err), err
	}
	page.Start = req.Range.Start.Format("2006-01-02")
	page.End = req.Range.End.Format("2006-01-02")

	result, err := h.indexService.Build(ctx, req)
	if err != nil {
		return buildStatus(err), err
	}
	page.Source = result.Source

	png, err := render.IndexChartPNG(result.Index, result.Weights, render.DefaultChartOptions())
	if err != nil {
		return http.StatusInternalServerError, err
	}
	page.Chart = template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
	if summary, ok := render.Summarize(result.Index); ok {
		page.Summary = summary.String()
	}
	page.Assets = collectRows(result.Weights, result.Series, render.DefaultRows)
	return http.StatusOK, nil
}
