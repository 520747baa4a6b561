// Package upload validates project drafts and runs their submission.
package upload

import (
	"fmt"
	"mime"
	"net/url"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/rpupo63/projectdal-backend/storage"
)

const (
	MaxImageSize   = 2 * 1024 * 1024
	MaxArchiveSize = 10 * 1024 * 1024
)

// Draft field names, as used in ErrorMap and form posts.
const (
	FieldProjectTitle       = "projectTitle"
	FieldSubtitle           = "subtitle"
	FieldProjectDescription = "projectDescription"
	FieldUploaderName       = "uploaderName"
	FieldProjectCategory    = "projectCategory"
	FieldTags               = "tags"
	FieldImages             = "images"
	FieldFiles              = "files"
	FieldGithubRepo         = "githubRepo"
	FieldDrive              = "drive"
)

// Categories is the fixed set a project may be filed under.
var Categories = []string{
	"Mechanical Engineering",
	"Electrical Engineering",
	"Civil Engineering",
	"Software Engineering",
	"Chemical Engineering",
	"Aerospace Engineering",
	"Biomedical Engineering",
	"Environmental Engineering",
	"Other",
}

func IsCategory(s string) bool {
	return slices.Contains(Categories, s)
}

// IsImage reports whether f has an image/* content type other than SVG.
func IsImage(f storage.File) bool {
	mediaType, _, err := mime.ParseMediaType(f.ContentType())
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "image/") && mediaType != "image/svg+xml"
}

// Draft is a project submission being filled in. Archive is nil when no file
// was attached.
type Draft struct {
	ProjectTitle       string
	Subtitle           string
	ProjectDescription string
	UploaderName       string
	ProjectCategory    string
	Tags               string
	Images             []storage.File
	Archive            storage.File
	GithubRepo         string
	Drive              string
}

// ParseTags splits comma separated input, trimming and dropping blanks.
// Repeats are kept.
func ParseTags(raw string) []string {
	tags := []string{}
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// ErrorMap maps a field to what is wrong with it. A missing key means valid.
type ErrorMap map[string]string

func (m ErrorMap) Empty() bool {
	return len(m) == 0
}

func (m ErrorMap) Clear(field string) {
	delete(m, field)
}

func (m ErrorMap) clone() ErrorMap {
	out := make(ErrorMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Validate checks every field of d independently.
func Validate(d Draft) ErrorMap {
	errs := ErrorMap{}

	minLength(errs, FieldProjectTitle, d.ProjectTitle, 3, "Project title is required", "Project title must be at least 3 characters")
	minLength(errs, FieldSubtitle, d.Subtitle, 5, "Subtitle is required", "Subtitle must be at least 5 characters")
	minLength(errs, FieldProjectDescription, d.ProjectDescription, 20, "Project description is required", "Project description must be at least 20 characters")
	minLength(errs, FieldUploaderName, d.UploaderName, 2, "Your name is required", "Name must be at least 2 characters")

	if !IsCategory(strings.TrimSpace(d.ProjectCategory)) {
		errs[FieldProjectCategory] = "Please select a project category"
	}

	if len(ParseTags(d.Tags)) == 0 {
		errs[FieldTags] = "Add at least one tag"
	}

	switch {
	case len(d.Images) == 0:
		errs[FieldImages] = "Add at least one image"
	default:
		for _, img := range d.Images {
			if !IsImage(img) {
				errs[FieldImages] = fmt.Sprintf("%s is not an image", img.Name())
				break
			}
			if img.Size() > MaxImageSize {
				errs[FieldImages] = fmt.Sprintf("%s is larger than 2 MB", img.Name())
				break
			}
		}
	}

	if d.Archive != nil {
		switch {
		case !strings.HasSuffix(strings.ToLower(d.Archive.Name()), ".zip"):
			errs[FieldFiles] = "Project files must be a .zip archive"
		case d.Archive.Size() > MaxArchiveSize:
			errs[FieldFiles] = "Project files must be 10 MB or smaller"
		}
	}

	if repo := strings.TrimSpace(d.GithubRepo); repo != "" {
		if u, err := url.Parse(repo); err != nil || !u.IsAbs() || u.Host == "" {
			errs[FieldGithubRepo] = "GitHub link must be a valid URL"
		}
	}

	return errs
}

func minLength(errs ErrorMap, field, value string, n int, required, tooShort string) {
	v := strings.TrimSpace(value)
	switch {
	case v == "":
		errs[field] = required
	case utf8.RuneCountInString(v) < n:
		errs[field] = tooShort
	}
}
