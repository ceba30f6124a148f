package http

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/webtools-service/internal/convert"
	"github.com/couchcryptid/webtools-service/internal/discord"
	"github.com/couchcryptid/webtools-service/internal/markdown"
	"github.com/couchcryptid/webtools-service/internal/snowday"
)

// convertPlaces trims float noise from unit conversions without hiding real precision.
const convertPlaces = 6

// boardFeetRequest defaults an omitted precision instead of rounding to whole board feet.
type boardFeetRequest struct {
	convert.BoardInput
	Precision *int `json:"precision,omitempty"`
}

func (s *Server) handleBoardFeet(w http.ResponseWriter, r *http.Request) {
	var req boardFeetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeToolError(w, r, err)
		return
	}
	in := req.BoardInput
	in.Precision = convert.DefaultPrecision
	if req.Precision != nil {
		in.Precision = *req.Precision
	}
	res, err := convert.BoardFeet(in)
	if err != nil {
		s.writeToolError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type convertResponse struct {
	Value  float64      `json:"value"`
	From   convert.Unit `json:"from"`
	To     convert.Unit `json:"to"`
	DPI    float64      `json:"dpi"`
	Result float64      `json:"result"`
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	value, err := strconv.ParseFloat(q.Get("value"), 64)
	if err != nil {
		s.writeToolError(w, r, fmt.Errorf("%w: value must be a number", errBadRequest))
		return
	}
	from, err := convert.ParseUnit(q.Get("from"))
	if err != nil {
		s.writeToolError(w, r, err)
		return
	}
	to, err := convert.ParseUnit(q.Get("to"))
	if err != nil {
		s.writeToolError(w, r, err)
		return
	}
	dpi := convert.DefaultDPI
	if raw := q.Get("dpi"); raw != "" {
		if dpi, err = strconv.ParseFloat(raw, 64); err != nil {
			s.writeToolError(w, r, fmt.Errorf("%w: dpi must be a number", errBadRequest))
			return
		}
	}

	out, err := convert.Convert(value, from, to, dpi)
	if err != nil {
		s.writeToolError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convertResponse{
		Value:  value,
		From:   from,
		To:     to,
		DPI:    dpi,
		Result: convert.Round(out, convertPlaces),
	})
}

type discordGenerateRequest struct {
	Time     *time.Time `json:"time,omitempty"`
	Unix     *int64     `json:"unix,omitempty"`
	Style    string     `json:"style,omitempty"`
	Timezone string     `json:"timezone,omitempty"`
}

type discordGenerateResponse struct {
	Unix    int64               `json:"unix"`
	Markup  string              `json:"markup"`
	Preview string              `json:"preview"`
	Formats []discord.Formatted `json:"formats"`
}

func (s *Server) handleDiscordGenerate(w http.ResponseWriter, r *http.Request) {
	var req discordGenerateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeToolError(w, r, err)
		return
	}
	loc, err := location(req.Timezone)
	if err != nil {
		s.writeToolError(w, r, err)
		return
	}

	now := s.clock.Now()
	t := now
	switch {
	case req.Time != nil:
		t = *req.Time
	case req.Unix != nil:
		t = time.Unix(*req.Unix, 0)
	}

	markup, err := discord.Generate(t, req.Style)
	if err != nil {
		s.writeToolError(w, r, err)
		return
	}
	preview, err := discord.Preview(t.Unix(), req.Style, loc, now)
	if err != nil {
		s.writeToolError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, discordGenerateResponse{
		Unix:    t.Unix(),
		Markup:  markup,
		Preview: preview,
		Formats: discord.All(t, loc, now),
	})
}

type discordParseResponse struct {
	discord.Timestamp
	Label   string `json:"label"`
	Preview string `json:"preview"`
}

func (s *Server) handleDiscordParse(w http.ResponseWriter, r *http.Request) {
	ts, err := discord.Parse(r.URL.Query().Get("ts"))
	if err != nil {
		s.writeToolError(w, r, err)
		return
	}
	loc, err := location(r.URL.Query().Get("timezone"))
	if err != nil {
		s.writeToolError(w, r, err)
		return
	}
	preview, err := discord.Preview(ts.Unix, ts.Style, loc, s.clock.Now())
	if err != nil {
		s.writeToolError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, discordParseResponse{
		Timestamp: ts,
		Label:     discord.Label(ts.Style),
		Preview:   preview,
	})
}

func location(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q", errBadRequest, name)
	}
	return loc, nil
}

func (s *Server) handleSnowDay(w http.ResponseWriter, r *http.Request) {
	var c snowday.Conditions
	if err := decodeJSON(w, r, &c); err != nil {
		s.writeToolError(w, r, err)
		return
	}
	if err := c.Validate(); err != nil {
		s.writeToolError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snowday.Estimate(c))
}

type markdownRequest struct {
	HTML string `json:"html"`
}

// handleMarkdown accepts either a JSON {"html": ...} body or a raw text/html body.
func (s *Server) handleMarkdown(w http.ResponseWriter, r *http.Request) {
	var src string
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "text/html" {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			s.writeToolError(w, r, fmt.Errorf("%w: read body: %v", errBadRequest, err))
			return
		}
		src = string(body)
	} else {
		var req markdownRequest
		if err := decodeJSON(w, r, &req); err != nil {
			s.writeToolError(w, r, err)
			return
		}
		src = req.HTML
	}

	md, err := markdown.Convert(src)
	if err != nil {
		s.writeToolError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"markdown": md})
}
