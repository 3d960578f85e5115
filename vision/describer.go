// Package vision asks a vision-capable model to describe experiment plots.
package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	// NoCaption is the caption sent for plots that have none.
	NoCaption = "No direct caption"
	// NoDescription replaces a missing or failed description.
	NoDescription = "No description found"
	// NoDescriptions stands in for the whole list when no describer is available.
	NoDescriptions = "No descriptions available."
)

// Image is one figure, possibly made of several image files, with its caption.
type Image struct {
	Paths   []string
	Caption string
}

// Review is what the vision model says about an image.
type Review struct {
	Description string `json:"Img_description"`
	Review      string `json:"Img_review"`
	Raw         string `json:"-"`
}

// Describer describes an image. Implementations wrap a vision-description client.
type Describer interface {
	Describe(ctx context.Context, img Image) (Review, error)
}

const systemMessage = `You are an experienced AI researcher reviewing figures for a lab notebook.
You describe plots precisely: axes, legends, trends, and notable values. Never invent data that is not visible.`

// reviewPrompt is the user message sent with the images.
func reviewPrompt(caption string) string {
	return fmt.Sprintf(`The figure caption is:
%s

Describe the figure and review it. Respond with a JSON object in a json code block:

`+"```json"+`
{
  "Img_description": "<what the figure shows: axes, series, trends, key values>",
  "Img_review": "<is the figure clear and informative, what could be improved>"
}
`+"```", caption)
}

var jsonBlockRe = regexp.MustCompile("(?s)```json(.*?)```")

// ParseReview reads Img_description/Img_review from the first json block of raw,
// or from raw itself when it is bare JSON.
func ParseReview(raw string) (Review, error) {
	body := strings.TrimSpace(raw)
	if m := jsonBlockRe.FindStringSubmatch(raw); len(m) == 2 {
		body = strings.TrimSpace(m[1])
	}
	if !gjson.Valid(body) {
		return Review{Raw: raw}, fmt.Errorf("vision reply is not valid JSON")
	}
	res := gjson.GetMany(body, "Img_description", "Img_review")
	return Review{
		Description: res[0].String(),
		Review:      res[1].String(),
		Raw:         raw,
	}, nil
}

// encodedImage is an image file ready to be inlined into a request.
type encodedImage struct {
	MediaType string
	Data      []byte
}

func (e encodedImage) Base64() string {
	return base64.StdEncoding.EncodeToString(e.Data)
}

func (e encodedImage) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", e.MediaType, e.Base64())
}

func loadImages(paths []string) ([]encodedImage, error) {
	out := make([]encodedImage, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read image: %w", err)
		}
		mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(p)))
		if mt == "" {
			mt = http.DetectContentType(data)
		}
		out = append(out, encodedImage{MediaType: mt, Data: data})
	}
	return out, nil
}
