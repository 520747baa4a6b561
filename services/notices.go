package services

import (
	"fmt"
	"strings"

	"github.com/rpupo63/projectdal-backend/config"
	"github.com/rpupo63/projectdal-backend/models"
)

// FormatHashtag formats a tag value as a hashtag: letters, digits and
// underscores only, lowercased. Tags that would start with a digit give "".
func FormatHashtag(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}

	var result strings.Builder
	for _, r := range tag {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			result.WriteRune(r)
		}
	}

	formatted := strings.ToLower(result.String())
	if len(formatted) > 0 && formatted[0] >= '0' && formatted[0] <= '9' {
		return ""
	}
	return formatted
}

// GetBaseURL is the public site URL used in links, from BASE_URL or
// FRONTEND_URL.
func GetBaseURL(cfg map[string]string) string {
	if baseURL := config.GetString(cfg, "BASE_URL", ""); baseURL != "" {
		return baseURL
	}
	return config.GetString(cfg, "FRONTEND_URL", "")
}

// BuildProjectURL constructs a project page URL, e.g.
// https://example.com/project/{id}. It is "" when either part is missing.
func BuildProjectURL(baseURL, projectID string) string {
	if baseURL == "" || projectID == "" {
		return ""
	}
	return fmt.Sprintf("%s/project/%s", strings.TrimSuffix(baseURL, "/"), projectID)
}

// ProjectNotice announces a newly uploaded project.
func ProjectNotice(p *models.Project, baseURL string) Notice {
	var tags []string
	for _, t := range p.TagValues() {
		if h := FormatHashtag(t); h != "" {
			tags = append(tags, "#"+h)
		}
	}

	lines := []string{
		fmt.Sprintf("%s by %s (%s)", p.Title, p.UploaderName, p.Category),
	}
	if len(tags) > 0 {
		lines = append(lines, strings.Join(tags, " "))
	}
	if link := BuildProjectURL(baseURL, p.ID.String()); link != "" {
		lines = append(lines, link)
	}
	return Notice{
		Subject: "New project: " + p.Title,
		Body:    strings.Join(lines, "\n"),
	}
}

// FeedbackNotice forwards a feedback entry.
func FeedbackNotice(f *models.Feedback) Notice {
	return Notice{
		Subject: "New feedback from " + f.Email,
		Body:    f.Message,
	}
}
