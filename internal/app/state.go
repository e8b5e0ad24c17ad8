package app

import (
	"encoding/json"
	"fmt"

	"aibuddies/internal/api"
	"aibuddies/internal/auth"
)

// imageTools take an uploaded image instead of a text prompt.
var imageTools = map[string]bool{
	"image_analysis":    true,
	"image_enhance":     true,
	"background_remove": true,
	"object_detection":  true,
	"style_transfer":    true,
	"image_caption":     true,
	"colorize_image":    true,
	"image_to_text":     true,
	"facial_analysis":   true,
}

// IsImageTool reports whether key is an image-class tool.
func IsImageTool(key string) bool {
	return imageTools[key]
}

// RequestState holds the outcome of the latest call.
type RequestState struct {
	Loading bool
	Error   string
	Message string
	Result  json.RawMessage
}

// State is a point-in-time copy of everything the views render.
type State struct {
	Session   *auth.Session
	Profile   *api.Profile
	Catalog   *api.Catalog
	Selected  string
	Prompt    string
	ImagePath string
	Request   RequestState
}

// SignedIn reports whether a session is present.
func (s State) SignedIn() bool {
	return s.Session.Valid()
}

// SelectedIsImage reports whether the selected tool needs an image.
func (s State) SelectedIsImage() bool {
	return s.Selected != "" && IsImageTool(s.Selected)
}

// SelectedCost is the displayed cost of the selected tool.
func (s State) SelectedCost() int {
	return s.Catalog.Cost(s.Selected)
}

// CreditsLabel is the header text for the balance.
func (s State) CreditsLabel() string {
	if s.Profile == nil {
		return "Loading Profile..."
	}
	return fmt.Sprintf("Credits: %d", s.Profile.Credits)
}

// PrettyResult renders the result as indented JSON.
func (s State) PrettyResult() string {
	if len(s.Request.Result) == 0 {
		return ""
	}
	var v interface{}
	if err := json.Unmarshal(s.Request.Result, &v); err != nil {
		return string(s.Request.Result)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return string(s.Request.Result)
	}
	return string(out)
}
